// ABOUTME: Sensor feed adapter reading since-boot step totals from a text stream.
// ABOUTME: One reading per line; malformed lines are logged and skipped.
package stepcounter

import (
	"bufio"
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harperreed/chronicare/internal/logging"
)

// ScanReadings streams integer readings from r until EOF or ctx is done.
// Fractional values (some sensors report floats) are truncated.
func ScanReadings(ctx context.Context, r io.Reader, logger *log.Logger) <-chan int64 {
	logger = logging.OrDefault(logger)
	out := make(chan int64)

	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			v, err := strconv.ParseFloat(line, 64)
			if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				logger.Warn("skipping malformed sensor reading", "line", line)
				continue
			}
			select {
			case out <- int64(v):
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error("sensor feed read failed", "err", err)
		}
	}()

	return out
}
