package module

import "nocscan/internal/services/scanner/domain"

// Ports exposed by the scanner module
type Ports struct {
	Worker     domain.WorkerPort
	Supervisor domain.SupervisorPort
}
