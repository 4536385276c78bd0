package server

import (
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"bucketfs/pkg/log"
)

// Status describes the running server.
type Status struct {
	Version       string       `json:"version"`
	Uptime        string       `json:"uptime"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Storage       *StorageInfo `json:"storage,omitempty"`
}

// StorageInfo is disk usage of the data directory.
type StorageInfo struct {
	Total          uint64 `json:"total"`
	Used           uint64 `json:"used"`
	Available      uint64 `json:"available"`
	AvailableHuman string `json:"available_human"`
}

// getStatus handles GET /status.
func (s *Server) getStatus(ctx echo.Context) error {
	uptime := int64(time.Since(s.started).Seconds())
	status := Status{
		Version:       s.opts.Version,
		Uptime:        formatUptime(uptime),
		UptimeSeconds: uptime,
	}

	if s.opts.DataDir != "" {
		storage, err := getStorageInfo(s.opts.DataDir)
		if err != nil {
			log.Error().Err(err).Str("data_dir", s.opts.DataDir).Msg("Failed to collect storage information")
			return ctx.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to collect storage information",
			})
		}
		status.Storage = storage
	}

	return ctx.JSON(http.StatusOK, status)
}

// getStorageInfo gets disk usage information for the specified directory.
func getStorageInfo(path string) (*StorageInfo, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil, err
	}

	blockSize := uint64(stat.Bsize) // #nosec G115 - syscall values are system dependent
	total := stat.Blocks * blockSize
	available := stat.Bavail * blockSize

	return &StorageInfo{
		Total:          total,
		Used:           total - available,
		Available:      available,
		AvailableHuman: humanize.IBytes(available),
	}, nil
}

// formatUptime converts seconds to a short "1d 2h 3m" form.
func formatUptime(seconds int64) string {
	duration := time.Duration(seconds) * time.Second
	const hoursInDay = 24
	const minutesInHour = 60
	days := int(duration.Hours()) / hoursInDay
	hours := int(duration.Hours()) % hoursInDay
	minutes := int(duration.Minutes()) % minutesInHour

	switch {
	case days > 0:
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
	case hours > 0:
		return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
	default:
		return strconv.Itoa(minutes) + "m"
	}
}
