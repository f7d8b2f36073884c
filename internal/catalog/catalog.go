// Package catalog provides read-only lookup of services and employees.
package catalog

import (
	"bukukas/internal/core"
)

// Catalog indexes the service and employee lists of a document.
// It is immutable after construction and safe for concurrent reads.
type Catalog struct {
	services  []core.Service
	employees []core.Employee
	svcIdx    map[string]int
	empIdx    map[string]int
}

// New builds a catalog. Later duplicates of an id are ignored.
func New(services []core.Service, employees []core.Employee) *Catalog {
	c := &Catalog{
		svcIdx: make(map[string]int, len(services)),
		empIdx: make(map[string]int, len(employees)),
	}
	for _, s := range services {
		if _, dup := c.svcIdx[s.ID]; dup {
			continue
		}
		c.svcIdx[s.ID] = len(c.services)
		c.services = append(c.services, s)
	}
	for _, e := range employees {
		if _, dup := c.empIdx[e.ID]; dup {
			continue
		}
		c.empIdx[e.ID] = len(c.employees)
		c.employees = append(c.employees, e)
	}
	return c
}

func FromDocument(doc core.Document) *Catalog {
	return New(doc.Services, doc.Employees)
}

func (c *Catalog) Service(id string) (core.Service, bool) {
	i, ok := c.svcIdx[id]
	if !ok {
		return core.Service{}, false
	}
	return c.services[i], true
}

func (c *Catalog) Employee(id string) (core.Employee, bool) {
	i, ok := c.empIdx[id]
	if !ok {
		return core.Employee{}, false
	}
	return c.employees[i], true
}

// Services returns services in catalog order.
func (c *Catalog) Services() []core.Service {
	return append([]core.Service(nil), c.services...)
}

// Employees returns employees in catalog order.
func (c *Catalog) Employees() []core.Employee {
	return append([]core.Employee(nil), c.employees...)
}

// EmployeesWithRole returns the employees holding role, in catalog order.
func (c *Catalog) EmployeesWithRole(role core.Role) []core.Employee {
	var out []core.Employee
	for _, e := range c.employees {
		if e.Role == role {
			out = append(out, e)
		}
	}
	return out
}

// Rank is the position of an employee in catalog order. Unknown employees
// rank after every known one.
func (c *Catalog) Rank(employeeID string) int {
	if i, ok := c.empIdx[employeeID]; ok {
		return i
	}
	return len(c.employees)
}

// ServiceName returns the display name for id, or the id itself when the
// service no longer exists.
func (c *Catalog) ServiceName(id string) string {
	if s, ok := c.Service(id); ok {
		return s.Name
	}
	return id
}

func (c *Catalog) EmployeeName(id string) string {
	if e, ok := c.Employee(id); ok {
		return e.Name
	}
	return id
}
