package types

// SortKey selects the metric used to order groups and processes.
type SortKey string

const (
	SortMem   SortKey = "mem"
	SortCPU   SortKey = "cpu"
	SortRSS   SortKey = "rss"
	SortSwap  SortKey = "swap"
	SortIO    SortKey = "io"
	SortNet   SortKey = "net"
	SortCount SortKey = "count"
)

// SortKeys is the cycle order used by the interactive sort toggle.
var SortKeys = []SortKey{SortMem, SortCPU, SortRSS, SortSwap, SortIO, SortNet, SortCount}

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	for _, known := range SortKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Next returns the sort key following k in the cycle order.
func (k SortKey) Next() SortKey {
	for i, known := range SortKeys {
		if k == known {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortKeys[0]
}

// StatusZombie is the lifecycle state reported for defunct processes.
const StatusZombie = "zombie"

// ProcessSample is one process as captured in a single snapshot. A fresh
// value exists per refresh tick; samples are never mutated after aggregation
// and never carried across ticks.
type ProcessSample struct {
	PID        int32
	PPID       int32
	Name       string
	Cmdline    string
	Username   string
	RSSMB      float64
	VMSMB      float64
	SwapMB     float64
	MemPercent float64
	CPUPercent float64
	IOReadMB   float64
	IOWriteMB  float64
	NetSentMB  float64
	NetRecvMB  float64
	Status     string
	App        string
}

// AppGroup aggregates every sample sharing one normalized application key.
// Groups are rebuilt from scratch on every tick.
type AppGroup struct {
	App        string
	PIDs       []int32
	Procs      int
	Zombies    int
	RSSMB      float64
	MemPercent float64
	CPUPercent float64
	SwapMB     float64
	IOReadMB   float64
	IOWriteMB  float64
	NetSentMB  float64
	NetRecvMB  float64
}

// SystemStats captures host-level figures for the header line and alerts.
type SystemStats struct {
	MemTotalGB     float64
	MemUsedGB      float64
	MemAvailableGB float64
	MemFreeGB      float64
	MemBuffersGB   float64
	MemCachedGB    float64
	MemPercent     float64
	SwapTotalGB    float64
	SwapUsedGB     float64
	SwapPercent    float64
	Load1          float64
	Load5          float64
	Load15         float64
	DiskPercent    float64
	CPUCount       int
}

// Severity ranks an alert for display emphasis.
type Severity int

const (
	SevInfo Severity = iota
	SevWarn
	SevCrit
)

// Alert is one derived warning for the current tick. Alert sets are fully
// recomputed every tick; there is no suppression across ticks.
type Alert struct {
	Severity Severity
	Message  string
}

// AlertThresholds are the configured ceilings the alert evaluator compares
// against. They are read-only at runtime.
type AlertThresholds struct {
	CPUHotPct      float64 `yaml:"cpu_hot_pct"`
	MemHotPct      float64 `yaml:"mem_hot_pct"`
	RSSHotMB       float64 `yaml:"rss_hot_mb"`
	SwapHotMB      float64 `yaml:"swap_hot_mb"`
	SwapSuggestPct float64 `yaml:"swap_suggest_pct"`
	DiskHighPct    float64 `yaml:"disk_high_pct"`
	DiskCritPct    float64 `yaml:"disk_crit_pct"`
	IOHotMB        float64 `yaml:"io_hot_mb"`
}

// DefaultThresholds returns the stock alert ceilings.
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		CPUHotPct:      100.0,
		MemHotPct:      10.0,
		RSSHotMB:       800.0,
		SwapHotMB:      500.0,
		SwapSuggestPct: 80.0,
		DiskHighPct:    85.0,
		DiskCritPct:    95.0,
		IOHotMB:        100.0,
	}
}
