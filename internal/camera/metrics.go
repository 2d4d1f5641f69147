package camera

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pnpvision_camera_frames_total",
			Help: "Continuous-capture frames by camera and outcome",
		},
		[]string{"camera", "outcome"}, // captured, error
	)

	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pnpvision_camera_frame_deliveries_total",
			Help: "Per-listener frame deliveries by camera and outcome",
		},
		[]string{"camera", "outcome"}, // ok, failed
	)
)
