package althold

// Mixer applies an altitude-hold throttle delta to the pilot throttle
// command in a vehicle-specific way.
type Mixer interface {
	ApplyHold(throttleCommand, throttleDelta int32) int32
}

// MultirotorMixer adds the delta directly and constrains the result to the
// vehicle's throttle endpoints.
type MultirotorMixer struct {
	Min, Max int32
}

func (m MultirotorMixer) ApplyHold(throttleCommand, throttleDelta int32) int32 {
	return clampInt32(throttleCommand+throttleDelta, m.Min, m.Max)
}

// FixedWingMixer applies the delta at half authority: throttle couples to
// altitude through airspeed rather than direct lift, so full-rate
// corrections porpoise the airframe.
type FixedWingMixer struct {
	Min, Max int32
}

func (m FixedWingMixer) ApplyHold(throttleCommand, throttleDelta int32) int32 {
	return clampInt32(throttleCommand+throttleDelta/2, m.Min, m.Max)
}

func clampInt32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
