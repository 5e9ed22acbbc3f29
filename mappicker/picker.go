// Package mappicker captures a single coordinate from clicks on a map.
package mappicker

import (
	"sync"

	"github.com/mbolis/geo-survey/geo"
)

var (
	// DefaultCenter is the middle of metropolitan France.
	DefaultCenter = geo.Point{Lat: 46.603354, Lng: 1.888334}
	DefaultZoom   = 5
	SelectedZoom  = 13
)

type View struct {
	Center geo.Point
	Zoom   int
}

// Picker holds at most one selected point. Every click is a committed
// selection and is reported to the owner immediately.
type Picker struct {
	mu       sync.Mutex
	selected *geo.Point
	onChange func(geo.Point)
}

// New creates a picker showing initial, which may be nil. onChange may be nil.
func New(initial *geo.Point, onChange func(geo.Point)) *Picker {
	p := &Picker{onChange: onChange}
	p.Sync(initial)
	return p
}

// Sync replaces the selection with a value coming from the owning form. An
// invalid or nil value clears the selection. The owner is not notified.
func (p *Picker) Sync(value *geo.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if value == nil || !value.Valid() {
		p.selected = nil
		return
	}
	v := *value
	p.selected = &v
}

// Click selects pt and notifies the owner.
func (p *Picker) Click(pt geo.Point) {
	p.mu.Lock()
	p.selected = &pt
	onChange := p.onChange
	p.mu.Unlock()

	if onChange != nil {
		onChange(pt)
	}
}

func (p *Picker) Selected() (geo.Point, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.selected == nil {
		return geo.Point{}, false
	}
	return *p.selected, true
}

// View centers on the selection, or shows the whole default area.
func (p *Picker) View() View {
	if pt, ok := p.Selected(); ok {
		return View{Center: pt, Zoom: SelectedZoom}
	}
	return View{Center: DefaultCenter, Zoom: DefaultZoom}
}
