package infra

import "time"

// Shared upper bounds for external calls. Each port carries its own bound so
// one hung request cannot stall a batch.
const (
	DBConnectTimeout    = 10 * time.Second
	StoryTimeout        = 60 * time.Second
	ImageTimeout        = 90 * time.Second
	SpeechTimeout       = 30 * time.Second
	BlobUploadTimeout   = 30 * time.Second
	DownloadTimeout     = 30 * time.Second
	StoreTimeout        = 10 * time.Second
	ReadyCheckTimeout   = 3 * time.Second
	ShutdownGracePeriod = 15 * time.Second
)
