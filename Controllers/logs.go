package Controllers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogFile is the JSON-lines file written by the logging middleware.
const RequestLogFile = "requests.log"

// LogEntry is one line of the request log.
type LogEntry struct {
	Timestamp     time.Time     `json:"timestamp"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	IP            string        `json:"ip"`
	UserAgent     string        `json:"user_agent"`
	RequestID     string        `json:"request_id"`
	Error         string        `json:"error,omitempty"`
	UserID        interface{}   `json:"user_id,omitempty"`
	Username      string        `json:"username,omitempty"`
	ContentLength int64         `json:"content_length"`
}

// LogGroup aggregates the entries of one method and path.
type LogGroup struct {
	Path        string     `json:"path"`
	Method      string     `json:"method"`
	Count       int        `json:"count"`
	AvgLatency  float64    `json:"avg_latency_ms"`
	MinLatency  float64    `json:"min_latency_ms"`
	MaxLatency  float64    `json:"max_latency_ms"`
	SuccessRate float64    `json:"success_rate"`
	Logs        []LogEntry `json:"logs"`
}

type LogsResponse struct {
	Groups      []LogGroup `json:"groups"`
	TotalLogs   int        `json:"total_logs"`
	TotalGroups int        `json:"total_groups"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
	TotalPages  int        `json:"total_pages"`
	DateFrom    time.Time  `json:"date_from"`
	DateTo      time.Time  `json:"date_to"`
}

type LogsController struct {
	Path string
	Log  *zap.Logger
}

func NewLogsController(dir string, log *zap.Logger) *LogsController {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogsController{Path: filepath.Join(dir, RequestLogFile), Log: log}
}

// GetLogs returns request logs grouped by method and path.
func (lc *LogsController) GetLogs(c *fiber.Ctx) error {
	dateFrom, dateTo, err := parseDateRange(c, time.Now())
	if err != nil {
		return err
	}
	page, pageSize := pagination(c)

	logs, err := lc.read(dateFrom, dateTo)
	if err != nil {
		return err
	}

	filtered := filterLogs(logs, c.Query("path"), c.Query("method"), c.Query("status"))
	groups := groupLogsByPath(filtered)

	start, end, totalPages := pageBounds(len(groups), page, pageSize)
	return c.JSON(LogsResponse{
		Groups:      groups[start:end],
		TotalLogs:   len(filtered),
		TotalGroups: len(groups),
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		DateFrom:    dateFrom,
		DateTo:      dateTo,
	})
}

// GetLogsByPath returns the entries whose path contains :path, newest first.
func (lc *LogsController) GetLogsByPath(c *fiber.Ctx) error {
	path := c.Params("path")
	if path == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Path parameter is required")
	}
	dateFrom, dateTo, err := parseDateRange(c, time.Now())
	if err != nil {
		return err
	}
	page, pageSize := pagination(c)

	logs, err := lc.read(dateFrom, dateTo)
	if err != nil {
		return err
	}

	var pathLogs []LogEntry
	for _, entry := range logs {
		if strings.Contains(entry.Path, path) {
			pathLogs = append(pathLogs, entry)
		}
	}
	sort.Slice(pathLogs, func(i, j int) bool {
		return pathLogs[i].Timestamp.After(pathLogs[j].Timestamp)
	})

	start, end, totalPages := pageBounds(len(pathLogs), page, pageSize)
	return c.JSON(fiber.Map{
		"logs":        pathLogs[start:end],
		"total_logs":  len(pathLogs),
		"page":        page,
		"page_size":   pageSize,
		"total_pages": totalPages,
		"path":        path,
		"date_from":   dateFrom,
		"date_to":     dateTo,
	})
}

// GetLogStats summarises the request log for the date range.
func (lc *LogsController) GetLogStats(c *fiber.Ctx) error {
	dateFrom, dateTo, err := parseDateRange(c, time.Now())
	if err != nil {
		return err
	}
	logs, err := lc.read(dateFrom, dateTo)
	if err != nil {
		return err
	}

	var successful, failed int
	var total, minLatency, maxLatency time.Duration
	methodStats := make(map[string]int)
	statusStats := make(map[int]int)
	pathStats := make(map[string]int)

	for i, entry := range logs {
		if entry.Status >= 200 && entry.Status < 300 {
			successful++
		} else if entry.Status >= 400 {
			failed++
		}
		total += entry.Latency
		if i == 0 || entry.Latency < minLatency {
			minLatency = entry.Latency
		}
		if entry.Latency > maxLatency {
			maxLatency = entry.Latency
		}
		methodStats[entry.Method]++
		statusStats[entry.Status]++
		pathStats[entry.Path]++
	}

	var avgLatency time.Duration
	successRate := 0.0
	if len(logs) > 0 {
		avgLatency = total / time.Duration(len(logs))
		successRate = float64(successful) / float64(len(logs)) * 100
	}

	type pathCount struct {
		Path  string `json:"path"`
		Count int    `json:"count"`
	}
	topPaths := make([]pathCount, 0, len(pathStats))
	for p, n := range pathStats {
		topPaths = append(topPaths, pathCount{Path: p, Count: n})
	}
	sort.Slice(topPaths, func(i, j int) bool {
		if topPaths[i].Count != topPaths[j].Count {
			return topPaths[i].Count > topPaths[j].Count
		}
		return topPaths[i].Path < topPaths[j].Path
	})
	if len(topPaths) > 10 {
		topPaths = topPaths[:10]
	}

	return c.JSON(fiber.Map{
		"total_requests":      len(logs),
		"successful_requests": successful,
		"error_requests":      failed,
		"success_rate":        successRate,
		"avg_latency_ms":      millis(avgLatency),
		"min_latency_ms":      millis(minLatency),
		"max_latency_ms":      millis(maxLatency),
		"method_stats":        methodStats,
		"status_stats":        statusStats,
		"top_paths":           topPaths,
		"date_from":           dateFrom,
		"date_to":             dateTo,
	})
}

func (lc *LogsController) read(dateFrom, dateTo time.Time) ([]LogEntry, error) {
	logs, err := readLogsFromFile(lc.Path, dateFrom, dateTo)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		lc.Log.Error("read request log", zap.String("path", lc.Path), zap.Error(err))
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to read logs")
	}
	return logs, nil
}

// parseDateRange reads date_from and date_to (YYYY-MM-DD). With neither set
// the range is today; date_to is inclusive.
func parseDateRange(c *fiber.Ctx, now time.Time) (time.Time, time.Time, error) {
	fromStr, toStr := c.Query("date_from"), c.Query("date_to")
	if fromStr == "" && toStr == "" {
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return from, endOfDay(from), nil
	}

	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return from, now, fiber.NewError(fiber.StatusBadRequest, "Invalid date_from format. Use YYYY-MM-DD")
		}
		from = parsed
	}

	to := now
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return from, now, fiber.NewError(fiber.StatusBadRequest, "Invalid date_to format. Use YYYY-MM-DD")
		}
		to = endOfDay(parsed)
	}
	return from, to, nil
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

func pagination(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}
	return page, pageSize
}

func pageBounds(total, page, pageSize int) (start, end, pages int) {
	pages = (total + pageSize - 1) / pageSize
	start = (page - 1) * pageSize
	if start > total {
		start = total
	}
	end = start + pageSize
	if end > total {
		end = total
	}
	return start, end, pages
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// readLogsFromFile returns the entries of filePath inside [dateFrom, dateTo].
// Lines that are not valid JSON are skipped.
func readLogsFromFile(filePath string, dateFrom, dateTo time.Time) ([]LogEntry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var logs []LogEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if !entry.Timestamp.Before(dateFrom) && !entry.Timestamp.After(dateTo) {
			logs = append(logs, entry)
		}
	}
	return logs, scanner.Err()
}

func filterLogs(logs []LogEntry, pathFilter, methodFilter, statusFilter string) []LogEntry {
	status, statusErr := strconv.Atoi(statusFilter)

	var filtered []LogEntry
	for _, entry := range logs {
		if pathFilter != "" && !strings.Contains(strings.ToLower(entry.Path), strings.ToLower(pathFilter)) {
			continue
		}
		if methodFilter != "" && !strings.EqualFold(entry.Method, methodFilter) {
			continue
		}
		if statusFilter != "" && statusErr == nil && entry.Status != status {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

// groupLogsByPath groups by "METHOD path", busiest first.
func groupLogsByPath(logs []LogEntry) []LogGroup {
	groupMap := make(map[string]*LogGroup)
	var order []string

	for _, entry := range logs {
		key := fmt.Sprintf("%s %s", entry.Method, entry.Path)
		latencyMs := millis(entry.Latency)
		ok := 0.0
		if entry.Status >= 200 && entry.Status < 300 {
			ok = 1.0
		}

		group, exists := groupMap[key]
		if !exists {
			groupMap[key] = &LogGroup{
				Path: entry.Path, Method: entry.Method, Count: 1,
				AvgLatency: latencyMs, MinLatency: latencyMs, MaxLatency: latencyMs,
				SuccessRate: ok, Logs: []LogEntry{entry},
			}
			order = append(order, key)
			continue
		}

		group.Count++
		group.Logs = append(group.Logs, entry)
		n := float64(group.Count)
		group.AvgLatency = (group.AvgLatency*(n-1) + latencyMs) / n
		group.SuccessRate = (group.SuccessRate*(n-1) + ok) / n
		if latencyMs < group.MinLatency {
			group.MinLatency = latencyMs
		}
		if latencyMs > group.MaxLatency {
			group.MaxLatency = latencyMs
		}
	}

	groups := make([]LogGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, *groupMap[key])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups
}
