package model

// Sink consumes dissected frames. The manager fans every frame out to all of
// its sinks; implementations must be safe for concurrent use.
type Sink interface {
	HandlePacket(frame *Frame, last *ProtoInfo)
	Name() string
}
