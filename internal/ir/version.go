package ir

// Version constants for the engine and its persisted schema.
const (
	// EngineVersion is the metadeploy engine version.
	EngineVersion = "0.3.0"

	// FingerprintVersion tags the object fingerprint algorithm.
	FingerprintVersion = "1"
)
