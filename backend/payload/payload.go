package payload

// Payload is a serialized argument or result as stored in the history.
type Payload []byte
