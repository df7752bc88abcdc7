package helpers

// Low-memory threshold below which scan batches are halved
const lowMemoryMB = 2048

// RecommendedBatchSize returns the configured symbol batch size, halved on hosts
// with less than 2 GB of RAM. Unknown memory keeps the configured size.
func RecommendedBatchSize(configured int) int {
	return batchSizeFor(configured, totalMemoryMB())
}

func batchSizeFor(configured, totalMB int) int {
	if configured <= 0 {
		return 1
	}
	if totalMB == 0 || totalMB >= lowMemoryMB {
		return configured
	}
	return max(1, configured/2)
}
