package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScan(_ *ScanRecord) error         { return nil }
func (n *NoopRecorder) RecordOrder(_ *OrderRecord) error       { return nil }
func (n *NoopRecorder) RecordExit(_ *ExitRecord) error         { return nil }
func (n *NoopRecorder) RecordDailyPnL(_ *DailyPnLRecord) error { return nil }
func (n *NoopRecorder) Close() error                           { return nil }
