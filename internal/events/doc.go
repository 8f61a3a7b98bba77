// Package events provides the in-process event bus hosted by the service.
//
// Publishers emit events through the EventEmitter interface without knowing
// which handlers will process them. The Bus persists each event to a Journal,
// queues it, and dispatches it from its Run loop to every subscriber whose topic
// pattern matches. Run is designed to be hosted by a hosted.Runner.
//
// The primary components are:
// - Event: a topic plus a JSON payload
// - EventHandler: interface for components that can handle events
// - EventEmitter: interface for components that can emit events
// - Bus: the queueing, dispatching implementation of both sides
// - Journal: persistence of event delivery status, used for recovery
package events
