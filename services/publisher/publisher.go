package publisher

// Publisher delivers analysis reports to a message stream
type Publisher interface {
	// Ping checks that the stream server is reachable
	Ping() error

	// Publish appends message under key to one of the report streams
	Publish(key string, message []byte) error

	// TrimStreams caps every report stream at its maximum length
	TrimStreams() error

	// Close releases the connection
	Close() error
}
