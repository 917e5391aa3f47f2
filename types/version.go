package types

// Version is the canonical project version, shared by the CLI, the IPC
// wire format, and the "Received:" header stamped on every processed
// mail (§4.4.1).
const Version = "0.6.1"

// ProgName is the program name stamped into the "Received:" header, e.g.
// `Received: by host (mailshim 0.6.1, account "work");`.
const ProgName = "mailshim"
