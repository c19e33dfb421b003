package types

// Version is the canonical project version.
// The CLI, the IPC contract and published events share this version.
const Version = "0.3.0"
