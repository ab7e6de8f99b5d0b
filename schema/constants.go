package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for persistence.
	DatabaseBackend string

	// ContentKind represents how a tracked path is classified.
	ContentKind string

	// EntryKind represents the variant of a Repo Entry.
	EntryKind string

	// BucketGranularity represents the truncation used to bucket entries by time.
	BucketGranularity string

	// RunStatus represents the state of a recorded archive run.
	RunStatus string
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
	CSVOut  OutputMode = "csv"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All content kinds a path can be classified as.
const (
	GroupConfigContent ContentKind = "group-config"
	ArticleContent     ContentKind = "article"
	IgnoredContent     ContentKind = "ignored"
)

// All entry variants.
const (
	GroupConfigChangedKind EntryKind = "group-config-changed"
	ArticleChangedKind     EntryKind = "article-changed"
	RemovedKind            EntryKind = "removed"
)

// All bucket granularities supported.
const (
	HourBucket  BucketGranularity = "hour"
	DayBucket   BucketGranularity = "day" // default
	MonthBucket BucketGranularity = "month"
)

// All archive run states.
const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// ValidOutputModes lists the output formats accepted from config.
var ValidOutputModes = map[OutputMode]bool{
	TextOut: true,
	JSONOut: true,
	CSVOut:  true,
}

// ValidDatabaseBackends lists the persistence backends accepted from config.
var ValidDatabaseBackends = map[DatabaseBackend]bool{
	SQLiteBackend:     true,
	MySQLBackend:      true,
	PostgreSQLBackend: true,
	NoneBackend:       true,
}

// ValidBucketGranularities lists the bucket sizes accepted from config.
var ValidBucketGranularities = map[BucketGranularity]bool{
	HourBucket:  true,
	DayBucket:   true,
	MonthBucket: true,
}
