package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	nodesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodechat_nodes_created_total",
		Help: "Chat nodes created.",
	})
	nodesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodechat_nodes_deleted_total",
		Help: "Chat nodes deleted.",
	})
	messagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodechat_messages_appended_total",
		Help: "Messages appended across all nodes.",
	})
	deniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodechat_requests_denied_total",
		Help: "Requests rejected by the access policy.",
	})
)
