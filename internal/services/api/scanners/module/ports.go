package module

import (
	"nocscan/internal/services/api/scanners/domain"
	scanner "nocscan/internal/services/scanner/domain"
)

// Ports declares what the supervisor API needs injected. Sightings is optional
type Ports struct {
	Supervisor scanner.SupervisorPort
	Sightings  domain.SightingsReader
}
