package driven

// EnvSource resolves environment-style variables such as OPENAI_API_KEY
// or DOCRAG_LLM_PROVIDER.
type EnvSource interface {
	// Lookup returns the value of name and whether it is set.
	Lookup(name string) (string, bool)
}
