// reconcile-connectors is a one-shot maintenance job: it scans every
// board for connectors whose endpoints no longer resolve to a live
// object and deletes them, as background cleanup for the best-effort
// cascade delete the board hub performs when an object is deleted. Every
// dangling connector found is deleted on the run that finds it; there is
// no grace period.
package main

import (
	"context"
	"fmt"
	"log"

	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/database"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/store"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	fmt.Println("connected to database")

	var boards []model.Board
	if err := db.Find(&boards).Error; err != nil {
		log.Fatalf("failed to list boards: %v", err)
	}
	fmt.Printf("scanning %d boards for dangling connectors\n", len(boards))

	s := store.New(db)
	ctx := context.Background()
	totalRemoved := 0

	for _, b := range boards {
		objects, err := s.ReadServer(ctx, b.ID)
		if err != nil {
			log.Printf("board %s: failed to read objects: %v", b.ID, err)
			continue
		}

		present := make(map[string]bool, len(objects))
		for _, o := range objects {
			present[o.ID] = true
		}

		removed := 0
		for _, o := range objects {
			if !o.IsConnector() {
				continue
			}
			if o.ConnectedFrom != nil && !present[*o.ConnectedFrom] || o.ConnectedTo != nil && !present[*o.ConnectedTo] {
				if err := s.Delete(ctx, b.ID, o.ID); err != nil {
					log.Printf("board %s: failed to delete dangling connector %s: %v", b.ID, o.ID, err)
					continue
				}
				removed++
			}
		}
		if removed > 0 {
			fmt.Printf("board %s: removed %d dangling connector(s)\n", b.ID, removed)
		}
		totalRemoved += removed
	}

	fmt.Printf("done: removed %d dangling connector(s) across %d boards\n", totalRemoved, len(boards))
}
