package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_generations_total",
			Help: "Sequence generation attempts by result",
		},
		[]string{"result"},
	)

	NameGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_name_generations_total",
			Help: "Campaign name generation attempts by result",
		},
		[]string{"result"},
	)

	Saves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_saves_total",
			Help: "Campaign create/update operations by result",
		},
		[]string{"op", "result"},
	)

	Compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_compensations_total",
			Help: "Compensating header deletes by result",
		},
		[]string{"result"},
	)

	CandidateLinkFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_candidate_link_failures_total",
			Help: "Best-effort candidate link failures",
		},
	)
)

func Init() {
	prometheus.MustRegister(Generations)
	prometheus.MustRegister(NameGenerations)
	prometheus.MustRegister(Saves)
	prometheus.MustRegister(Compensations)
	prometheus.MustRegister(CandidateLinkFailures)
}
