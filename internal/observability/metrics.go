package observability

// MetricKey names an instrument. Prometheus series use the key verbatim,
// prefixed by the registry's namespace.
type MetricKey string

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MPaymentOutcomes         MetricKey = "payment_outcomes_total"
	MEventsDispatched        MetricKey = "events_dispatched_total"
)

type MetricKind int

const (
	KindCounter MetricKind = iota
	KindHistogram
)

// MetricSpec describes one instrument and the label keys every observation
// must supply.
type MetricSpec struct {
	Key    MetricKey
	Kind   MetricKind
	Help   string
	Labels []string
	// Buckets applies to histograms; nil means the backend default.
	Buckets []float64
}

// gatewayBuckets stretch past the default payment timeout so slow charges
// land in a bucket instead of +Inf.
var gatewayBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8}

// StandardMetrics lists every instrument the service reports on.
var StandardMetrics = []MetricSpec{
	{Key: MUsecaseRequests, Kind: KindCounter, Help: "Total number of use case invocations.", Labels: []string{"use_case", "outcome"}},
	{Key: MUsecaseDuration, Kind: KindHistogram, Help: "Duration of use case execution in seconds.", Labels: []string{"use_case"}},
	{Key: MHTTPRequests, Kind: KindCounter, Help: "Total number of HTTP requests.", Labels: []string{"method", "route", "status"}},
	{Key: MHTTPRequestDuration, Kind: KindHistogram, Help: "Duration of HTTP requests in seconds.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequests, Kind: KindCounter, Help: "Total number of calls to external collaborators.", Labels: []string{"peer", "endpoint", "outcome"}},
	{Key: MExternalRequestDuration, Kind: KindHistogram, Help: "Duration of calls to external collaborators in seconds.", Labels: []string{"peer", "endpoint"}, Buckets: gatewayBuckets},
	{Key: MPaymentOutcomes, Kind: KindCounter, Help: "Payment attempt outcomes by method and failure kind.", Labels: []string{"method", "kind"}},
	{Key: MEventsDispatched, Kind: KindCounter, Help: "Domain event deliveries by event name and handler result.", Labels: []string{"event", "result"}},
}
