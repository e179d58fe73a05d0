package qmi8658

// Register map, from the QMI8658C datasheet rev. 0.9.
const (
	qmi8658WhoAmIReg   = 0x00
	qmi8658RevisionReg = 0x01
	qmi8658Ctrl1Reg    = 0x02 // serial interface and sensor enable
	qmi8658Ctrl2Reg    = 0x03 // accelerometer scale and ODR
	qmi8658Ctrl3Reg    = 0x04 // gyroscope scale and ODR
	qmi8658Ctrl7Reg    = 0x08 // enable sensors

	qmi8658TempLReg = 0x33
	qmi8658TempHReg = 0x34

	qmi8658AccXLReg = 0x35
	qmi8658AccXHReg = 0x36
	qmi8658AccYLReg = 0x37
	qmi8658AccYHReg = 0x38
	qmi8658AccZLReg = 0x39
	qmi8658AccZHReg = 0x3a

	qmi8658GyrXLReg = 0x3b
	qmi8658GyrXHReg = 0x3c
	qmi8658GyrYLReg = 0x3d
	qmi8658GyrYHReg = 0x3e
	qmi8658GyrZLReg = 0x3f
	qmi8658GyrZHReg = 0x40

	qmi8658ResetReg = 0x60
)

const (
	qmi8658ResetCmd = 0xb0

	qmi8658ModeMask      = 0x03
	qmi8658Ctrl7Enables  = 0x0f // aEN, gEN, mEN, sEN
	qmi8658ODRMask       = 0x0f
	qmi8658ScaleMask     = 0x70
	qmi8658ScaleShift    = 4
	qmi8658SensorDisable = 0x01 // CTRL1 bit 0 turns off the 2 MHz oscillator

	qmi8658TempSensitivity = 256
)

const (
	// AddressHigh is the device address with SA0 pulled high.
	AddressHigh = 0x6b
	// AddressLow is the device address with SA0 pulled low.
	AddressLow = 0x6a

	// WhoAmI is the expected content of the WHO_AM_I register.
	WhoAmI = 0x05
)
