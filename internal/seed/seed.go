package seed

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// Module is one named seeding step. Modules are registered statically in
// dependency order and run by Run; there is no dynamic discovery.
type Module struct {
	Name string
	Run  func(db *gorm.DB) error
}

// Run executes each module inside its own database transaction, logging
// progress. The first failure aborts the run.
func Run(db *gorm.DB, modules []Module) error {
	for _, m := range modules {
		log.Printf("seed: running %s", m.Name)
		err := db.Transaction(func(tx *gorm.DB) error {
			return m.Run(tx)
		})
		if err != nil {
			return fmt.Errorf("seed %s: %w", m.Name, err)
		}
	}
	log.Printf("seed: %d module(s) done", len(modules))
	return nil
}
