// Package defines holds the vocabulary shared by every opal/eae service:
// service type tags, method tags, collection names and status labels.
//
// NOTE: These values are stored in shared collections and compared by other
// services. They are part of the cross-service contract and must not change.
package defines

import "time"

// Service type tags.
const (
	ServiceTypeAlgoService = "opal_algoservice"
	ServiceTypeCache       = "opal_cache"
	ServiceTypeDatabase    = "opal_db"
	ServiceTypePrivacy     = "opal_privacy"
	ServiceTypeLog         = "opal_log"

	// DefaultServiceType is used when a service does not declare its type.
	DefaultServiceType = "eae-service"
)

// Privacy and aggregation method tags.
const (
	PrivacyMethodFilter = "privacy_filter"

	AggregationMethodSum   = "aggregation_sum"
	AggregationMethodCount = "aggregation_count"
)

// Job and service status labels.
const (
	JobStatusCreated = "eae_job_created"
	JobStatusPrivacy = "opal_job_privacy"

	ServiceStatusIdle = "eae_service_idle"

	DefaultJobType = "eae-job-type"
)

// Collection names.
const (
	CacheCollection         = "opal_cache"
	AlgoCollection          = "opal_algoservice"
	IllegalAccessCollection = "opal_illegal_access"
	QuotaTokensCollection   = "opal_users_quota_tokens"
	StatusCollectionName    = "opal_global_status"
)

// DefaultUpdateInterval is how often a node refreshes and syncs its status.
const DefaultUpdateInterval = 60 * time.Second
