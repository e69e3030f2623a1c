package fifo

// Circular Fifo holding up to size elements
type Fifo[T any] struct {
	buffer   []T
	writePos int
	readPos  int
}

func NewFifo[T any](size int) *Fifo[T] {
	if size < 1 {
		size = 1
	}
	// One slot stays empty to tell full from empty
	return &Fifo[T]{buffer: make([]T, size+1)}
}

func (f *Fifo[T]) Reset() {
	var zero T
	for i := range f.buffer {
		f.buffer[i] = zero
	}
	f.readPos = 0
	f.writePos = 0
}

// Write element to fifo, returns false if the fifo is full
func (f *Fifo[T]) Write(element T) bool {
	writePosNext := f.writePos + 1
	if writePosNext == len(f.buffer) {
		writePosNext = 0
	}
	if writePosNext == f.readPos {
		return false
	}
	f.buffer[f.writePos] = element
	f.writePos = writePosNext
	return true
}

// Read oldest element from fifo, returns false if the fifo is empty
func (f *Fifo[T]) Read() (T, bool) {
	var zero T
	if f.readPos == f.writePos {
		return zero, false
	}
	element := f.buffer[f.readPos]
	f.buffer[f.readPos] = zero
	f.readPos++
	if f.readPos == len(f.buffer) {
		f.readPos = 0
	}
	return element, true
}
