package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramCommandsReceivedTotal,
		telegramAntiSpamTotal,
	)
}

var (
	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Incoming commands and callbacks from users.",
		},
		[]string{"command"},
	)

	telegramAntiSpamTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_antispam_triggered_total",
			Help: "Updates throttled by the anti-spam gate, by verdict.",
		},
		[]string{"verdict"}, // warn | banned
	)
)

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncAntiSpam(verdict string) {
	telegramAntiSpamTotal.WithLabelValues(norm(verdict)).Inc()
}
