package engine

import "sync"

// Registry is the mapping from method name to handler variant (spec §4.7):
// typed request handler, notification handler, or one of the two fallbacks.
// A Registry is shared by reference across sessions created from the same
// Session Multiplexer (spec §4.7), and every Engine looks its handlers up
// here at dispatch time: registering or removing a handler after sessions
// exist takes effect for the sessions already running as well as for later
// ones. Sessions do not keep a snapshot of the handlers present when they
// were created.
type Registry struct {
	mu sync.RWMutex

	requestHandlers      map[string]RequestHandlerFunc
	notificationHandlers map[string]NotificationHandlerFunc

	fallbackRequest      FallbackRequestHandlerFunc
	fallbackNotification FallbackNotificationHandlerFunc
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		requestHandlers:      make(map[string]RequestHandlerFunc),
		notificationHandlers: make(map[string]NotificationHandlerFunc),
	}
}

// SetRequestHandler installs (or replaces) the handler for method.
func (r *Registry) SetRequestHandler(method string, h RequestHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestHandlers[method] = h
}

// RemoveRequestHandler uninstalls the handler for method, if any.
func (r *Registry) RemoveRequestHandler(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requestHandlers, method)
}

// SetNotificationHandler installs (or replaces) the notification handler
// for method.
func (r *Registry) SetNotificationHandler(method string, h NotificationHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notificationHandlers[method] = h
}

// RemoveNotificationHandler uninstalls the notification handler for method.
func (r *Registry) RemoveNotificationHandler(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.notificationHandlers, method)
}

// SetFallbackRequestHandler installs the handler used for methods with no
// specific request handler installed.
func (r *Registry) SetFallbackRequestHandler(h FallbackRequestHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbackRequest = h
}

// SetFallbackNotificationHandler installs the handler used for
// notifications with no specific handler installed.
func (r *Registry) SetFallbackNotificationHandler(h FallbackNotificationHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbackNotification = h
}

func (r *Registry) requestHandler(method string) (RequestHandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.requestHandlers[method]
	return h, ok
}

func (r *Registry) notificationHandler(method string) (NotificationHandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.notificationHandlers[method]
	return h, ok
}

func (r *Registry) fallbacks() (FallbackRequestHandlerFunc, FallbackNotificationHandlerFunc) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallbackRequest, r.fallbackNotification
}
