package metrics

// Config carries service identity labels for metrics instruments.
type Config struct {
	ServiceName string
	Environment string
}
