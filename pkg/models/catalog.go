package models

import (
	"fmt"
	"slices"
)

// Catalog is the ordered enumeration of servers and the services each of them offers.
// The first server, and the first service of every server, are the defaults.
type Catalog struct {
	Servers []Server `json:"servers" validate:"required,min=1,unique=Name,dive"`
}

// Server is a named execution target offering an ordered list of services.
type Server struct {
	Name     string   `json:"name"     validate:"required"`
	Services []string `json:"services" validate:"required,min=1,unique,dive,required"`
}

// DefaultCatalog returns the built-in server and service enumeration.
func DefaultCatalog() Catalog {
	return Catalog{
		Servers: []Server{
			{Name: "Server A", Services: []string{"Service 1", "Service 2", "Service 3"}},
			{Name: "Server B", Services: []string{"Service 4", "Service 5", "Service 6"}},
			{Name: "Server C", Services: []string{"Service 7", "Service 8", "Service 9"}},
		},
	}
}

// DefaultServer returns the first enumerated server.
func (c Catalog) DefaultServer() string {
	if len(c.Servers) == 0 {
		return ""
	}

	return c.Servers[0].Name
}

// Services returns the services offered by server.
func (c Catalog) Services(server string) ([]string, bool) {
	for _, s := range c.Servers {
		if s.Name == server {
			return s.Services, true
		}
	}

	return nil, false
}

// DefaultService returns the first service of server, or "" for an unknown server.
func (c Catalog) DefaultService(server string) string {
	services, ok := c.Services(server)
	if !ok || len(services) == 0 {
		return ""
	}

	return services[0]
}

// CheckSelection verifies that service is offered by server.
func (c Catalog) CheckSelection(server, service string) error {
	services, ok := c.Services(server)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownServer, server)
	}

	if !slices.Contains(services, service) {
		return fmt.Errorf("%w: %q on %q", ErrInvalidService, service, server)
	}

	return nil
}
