package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsTaken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sessions_total",
		Help: "Attendance sessions created from classroom photos.",
	})
	facesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_faces_detected_total",
		Help: "Faces detected across all classroom photos.",
	})
	studentsMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_students_matched_total",
		Help: "Distinct students marked present across all sessions.",
	})
	studentsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_students_registered_total",
		Help: "Students enrolled with a face embedding.",
	})
)
