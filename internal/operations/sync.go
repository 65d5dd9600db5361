package operations

import (
	"context"
	"time"
)

const maintenanceInterval = 10 * time.Minute

// StartMaintenance prunes expired connected sites on every tick until ctx is
// done. Expiry is otherwise only noticed when a site is read.
func (s *WalletServer) StartMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sites.PruneExpired(); n > 0 {
				s.logger.Info().Int("removed", n).Msg("pruned expired connected sites")
			}
		case <-ctx.Done():
			return
		}
	}
}
