package liveview

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pnpvision_liveview_clients",
		Help: "Connected live-view websocket clients",
	})

	wsFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pnpvision_liveview_frames_sent_total",
		Help: "Frames written to websocket clients",
	})

	wsFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pnpvision_liveview_frames_dropped_total",
		Help: "Frames dropped because a client could not keep up",
	})
)
