// Package services – Prometheus collectors for the consultation protocol.
//
// Label cardinality is kept deliberately small: claim results and relay
// directions are closed enums, so every series is bounded.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// escalationsCreated counts new waiting escalation threads.
	escalationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vet_escalations_created_total",
		Help: "Total number of escalation threads created.",
	})

	// claimAttempts counts claim attempts by outcome
	// (assigned, already_taken, not_found, not_eligible, busy).
	claimAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vet_claim_attempts_total",
			Help: "Total number of consultation claim attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// relayedMessages counts relayed messages by direction
	// (client_to_doctor, doctor_to_client, admin_to_client).
	relayedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vet_relayed_messages_total",
			Help: "Total number of relayed consultation messages by direction.",
		},
		[]string{"direction"},
	)

	// doctorNotifications counts fan-out deliveries by result (sent, failed).
	doctorNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vet_doctor_notifications_total",
			Help: "Total number of doctor fan-out deliveries by result.",
		},
		[]string{"result"},
	)

	// aiRequests counts advice requests by result (ok, failed).
	aiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vet_ai_requests_total",
			Help: "Total number of AI advice requests by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		escalationsCreated,
		claimAttempts,
		relayedMessages,
		doctorNotifications,
		aiRequests,
	)
}
