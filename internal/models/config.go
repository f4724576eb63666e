package models

// Config holds the complete configuration for one magicpacket run.
type Config struct {
	Wake        WakeConfig
	Parallelism int    // destinations sent to at once; 0 or 1 is sequential
	MetricsFile string // optional Prometheus textfile written after the run
}
