package manager

// LlamaBuilt reports whether this binary includes the in-process llama backend.
func LlamaBuilt() bool { return llamaBuilt }
