package pipeline

import "chapters/internal/chapters"

// Listener receives lifecycle events from Library operations. Process runs
// chapter reading and encoding concurrently, so implementations used with it
// must be safe for concurrent calls.
type Listener interface {
	EncodeStarted()
	EncodeUpdate(progress int)
	EncodeComplete(result []byte)

	ReadChaptersStarted()
	ReadChaptersComplete(list []chapters.Chapter)

	AddMetadataStarted()
	AddMetadataComplete()

	WriteMP3Started()
	WriteMP3Progress(progress int)
	WriteMP3Complete()
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) EncodeStarted() {}
func (NopListener) EncodeUpdate(int) {}
func (NopListener) EncodeComplete([]byte) {}
func (NopListener) ReadChaptersStarted() {}
func (NopListener) ReadChaptersComplete([]chapters.Chapter) {}
func (NopListener) AddMetadataStarted() {}
func (NopListener) AddMetadataComplete() {}
func (NopListener) WriteMP3Started() {}
func (NopListener) WriteMP3Progress(int) {}
func (NopListener) WriteMP3Complete() {}

// FuncListener adapts optional callbacks to Listener. Nil fields are skipped.
type FuncListener struct {
	OnEncodeStarted        func()
	OnEncodeUpdate         func(progress int)
	OnEncodeComplete       func(result []byte)
	OnReadChaptersStarted  func()
	OnReadChaptersComplete func(list []chapters.Chapter)
	OnAddMetadataStarted   func()
	OnAddMetadataComplete  func()
	OnWriteMP3Started      func()
	OnWriteMP3Progress     func(progress int)
	OnWriteMP3Complete     func()
}

func (f FuncListener) EncodeStarted() {
	if f.OnEncodeStarted != nil {
		f.OnEncodeStarted()
	}
}

func (f FuncListener) EncodeUpdate(progress int) {
	if f.OnEncodeUpdate != nil {
		f.OnEncodeUpdate(progress)
	}
}

func (f FuncListener) EncodeComplete(result []byte) {
	if f.OnEncodeComplete != nil {
		f.OnEncodeComplete(result)
	}
}

func (f FuncListener) ReadChaptersStarted() {
	if f.OnReadChaptersStarted != nil {
		f.OnReadChaptersStarted()
	}
}

func (f FuncListener) ReadChaptersComplete(list []chapters.Chapter) {
	if f.OnReadChaptersComplete != nil {
		f.OnReadChaptersComplete(list)
	}
}

func (f FuncListener) AddMetadataStarted() {
	if f.OnAddMetadataStarted != nil {
		f.OnAddMetadataStarted()
	}
}

func (f FuncListener) AddMetadataComplete() {
	if f.OnAddMetadataComplete != nil {
		f.OnAddMetadataComplete()
	}
}

func (f FuncListener) WriteMP3Started() {
	if f.OnWriteMP3Started != nil {
		f.OnWriteMP3Started()
	}
}

func (f FuncListener) WriteMP3Progress(progress int) {
	if f.OnWriteMP3Progress != nil {
		f.OnWriteMP3Progress(progress)
	}
}

func (f FuncListener) WriteMP3Complete() {
	if f.OnWriteMP3Complete != nil {
		f.OnWriteMP3Complete()
	}
}
