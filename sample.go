package qmi8658

type Vector struct {
	X, Y, Z float64
}

// Sample is one reading: acceleration in g, rotation rate in degrees per
// second and die temperature in degrees Celsius.
type Sample struct {
	Accel       Vector
	Gyro        Vector
	Temperature float64
}

// Readings flattens the sample into named fields.
func (s Sample) Readings() map[string]float64 {
	return map[string]float64{
		"accel_x_g":           s.Accel.X,
		"accel_y_g":           s.Accel.Y,
		"accel_z_g":           s.Accel.Z,
		"gyro_x_dps":          s.Gyro.X,
		"gyro_y_dps":          s.Gyro.Y,
		"gyro_z_dps":          s.Gyro.Z,
		"temperature_celsius": s.Temperature,
	}
}
