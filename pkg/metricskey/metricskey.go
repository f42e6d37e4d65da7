package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	// StatsWikipediaCalls is base for counter metric for total Wikipedia API calls
	StatsWikipediaCalls = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_wikipedia_calls",
		Help:         "stats_wikipedia_calls provides total Wikipedia API calls",
		RequiredTags: []string{"operation", "language"},
	}

	StatsWikipediaCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_wikipedia_calls_failed",
		Help:         "stats_wikipedia_calls_failed provides total Wikipedia API calls failed",
		RequiredTags: []string{"operation", "language"},
	}

	StatsWikipediaThrottled = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_wikipedia_throttled",
		Help:         "stats_wikipedia_throttled provides total Wikipedia API calls rejected by the rate limiter",
		RequiredTags: []string{"operation"},
	}

	StatsRPCRequests = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_rpc_requests",
		Help:         "stats_rpc_requests provides total JSON-RPC requests received",
		RequiredTags: []string{"method"},
	}
)

// Perf
var (
	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfWikipediaCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_wikipedia_call",
		Help:         "perf_wikipedia_call provides duration of Wikipedia API call",
		RequiredTags: []string{"operation"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfToolCall,
	&PerfWikipediaCall,
	&StatsRPCRequests,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
	&StatsWikipediaCalls,
	&StatsWikipediaCallsFailed,
	&StatsWikipediaThrottled,
}
