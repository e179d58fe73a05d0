package i2c

// A RegisterReader is typically a *Bus.
type RegisterReader interface {
	ReadRegister(reg uint8) (uint8, error)
}

// Reader reads a series of registers, remembering the first error. Once an
// error has occurred all further reads are skipped and return zero.
type Reader struct {
	regs  RegisterReader
	error error
}

func NewReader(regs RegisterReader) *Reader {
	return &Reader{regs: regs}
}

func (r *Reader) Error() error {
	return r.error
}

func (r *Reader) Reset() {
	r.error = nil
}

// Read reads the given registers in order, most significant first.
func (r *Reader) Read(regs ...uint8) ([]byte, error) {
	res := make([]byte, len(regs))
	for i, reg := range regs {
		val, err := r.regs.ReadRegister(reg)
		if err != nil {
			return nil, err
		}
		res[i] = val
	}
	return res, nil
}

// Signed reads the registers, most significant first, and returns them as
// one two's complement value.
func (r *Reader) Signed(regs ...uint8) int {
	if r.error != nil {
		return 0
	}
	data, err := r.Read(regs...)
	if err != nil {
		r.error = err
		return 0
	}
	return signed(data)
}

func (r *Reader) Byte(reg uint8) int {
	if r.error != nil {
		return 0
	}
	val, err := r.regs.ReadRegister(reg)
	if err != nil {
		r.error = err
		return 0
	}
	return int(val)
}

func signed(data []byte) int {
	res := int(int8(data[0]))
	for _, val := range data[1:] {
		res <<= 8
		res |= int(val)
	}
	return res
}
