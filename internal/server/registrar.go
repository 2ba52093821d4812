package server

import "google.golang.org/grpc"

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// PublicRegistrar is implemented by registrars whose service has methods
// callable without a session, given as full method names.
type PublicRegistrar interface {
	Registrar
	PublicMethods() []string
}

// publicMethods collects the session-free methods of every registrar.
func publicMethods(registrars []Registrar) map[string]bool {
	public := map[string]bool{}
	for _, r := range registrars {
		if p, ok := r.(PublicRegistrar); ok {
			for _, m := range p.PublicMethods() {
				public[m] = true
			}
		}
	}
	return public
}
