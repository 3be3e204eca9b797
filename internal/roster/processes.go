package roster

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const processScanTimeout = 2 * time.Second

// processNames lists the names of running processes. Processes that exit
// during the scan or deny access are left out.
func processNames() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), processScanTimeout)
	defer cancel()

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
