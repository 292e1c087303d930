package main

import (
	"math"

	"github.com/ajitpratap0/datalogger/pkg/field"
)

const joints = 12

// robot is a simulated legged robot. State buffers are reused between
// steps; values read them when they are appended.
type robot struct {
	dt   float64
	tick int64

	q, qd   []float64
	tau     []float32
	rot     []float64
	jac     []float64
	acc     []float32
	gyro    []float32
	contact bool
	mode    string
}

func newRobot(dt float64) *robot {
	return &robot{
		dt:   dt,
		q:    make([]float64, joints),
		qd:   make([]float64, joints),
		tau:  make([]float32, joints),
		rot:  make([]float64, 9),
		jac:  make([]float64, 6*joints),
		acc:  make([]float32, 3),
		gyro: make([]float32, 3),
		mode: "stand",
	}
}

func (r *robot) controlFields() []field.Field {
	return []field.Field{
		field.New("time", field.Float64(0)),
		field.New("tick", field.Int64(0)),
		field.New("mode", field.String("")),
		field.New("q", field.Vector64(r.q...)),
		field.New("qd", field.Vector64(r.qd...)),
		field.New("tau", field.Vector32(r.tau...)),
		field.New("base_rot", field.Matrix64(3, 3, r.rot)),
		field.New("jacobian", field.Matrix64(6, joints, r.jac)),
		field.New("contact", field.Bool(false)),
	}
}

func (r *robot) imuFields() []field.Field {
	return []field.Field{
		field.New("time", field.Float64(0)),
		field.New("acc", field.Vector32(r.acc...)),
		field.New("gyro", field.Vector32(r.gyro...)),
	}
}

// step advances the simulation by one control period.
func (r *robot) step() {
	r.tick++
	t := r.time()
	phase := 2 * math.Pi * 1.5 * t

	for j := range r.q {
		offset := float64(j%3) * math.Pi / 3
		r.q[j] = 0.4 * math.Sin(phase+offset)
		r.qd[j] = 0.4 * 2 * math.Pi * 1.5 * math.Cos(phase+offset)
		r.tau[j] = float32(-30*r.q[j] - 0.8*r.qd[j])
	}

	yaw := 0.05 * t
	c, s := math.Cos(yaw), math.Sin(yaw)
	copy(r.rot, []float64{c, -s, 0, s, c, 0, 0, 0, 1})
	for i := range r.jac {
		row, col := i/joints, i%joints
		r.jac[i] = math.Cos(r.q[col] + float64(row)*0.1)
	}

	r.acc[0] = float32(0.2 * math.Sin(phase))
	r.acc[1] = float32(0.1 * math.Cos(phase))
	r.acc[2] = float32(9.81 + 0.3*math.Sin(2*phase))
	r.gyro[2] = float32(0.05 + 0.01*math.Sin(phase))

	r.contact = math.Sin(phase) > 0
	switch {
	case t < 0.5:
		r.mode = "stand"
	case r.tick%2000 < 1000:
		r.mode = "trot"
	default:
		r.mode = "walk"
	}
}

func (r *robot) time() float64 {
	return float64(r.tick) * r.dt
}

func (r *robot) control() []field.Value {
	return []field.Value{
		field.Float64(r.time()),
		field.Int64(r.tick),
		field.String(r.mode),
		field.Vector64(r.q...),
		field.Vector64(r.qd...),
		field.Vector32(r.tau...),
		field.Matrix64(3, 3, r.rot),
		field.Matrix64(6, joints, r.jac),
		field.Bool(r.contact),
	}
}

func (r *robot) imu() []field.Value {
	return []field.Value{
		field.Float64(r.time()),
		field.Vector32(r.acc...),
		field.Vector32(r.gyro...),
	}
}
