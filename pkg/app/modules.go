package app

// Compiled-in modules register themselves with core on import.
import (
	_ "github.com/flemzord/tdsta/internal/gateway"
	_ "github.com/flemzord/tdsta/internal/ingest"
	_ "github.com/flemzord/tdsta/internal/knowledge"
	_ "github.com/flemzord/tdsta/internal/telemetry"
)
