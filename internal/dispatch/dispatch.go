// Package dispatch routes attribute writes from the protocol stack onto the
// light state.
package dispatch

import (
	"github.com/rs/zerolog"

	"github.com/sweeney/zigbee-light/internal/light"
	"github.com/sweeney/zigbee-light/internal/zcl"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

type key struct {
	cluster   uint16
	attribute uint16
}

type setter func(st *light.State, v zcl.Value)

var table = map[key]setter{
	{zcl.ClusterOnOff, zcl.AttrOnOff}: func(st *light.State, v zcl.Value) {
		st.On = v.Bool()
	},
	{zcl.ClusterLevelControl, zcl.AttrCurrentLevel}: func(st *light.State, v zcl.Value) {
		st.Level = v.Uint8()
	},
	{zcl.ClusterColorControl, zcl.AttrCurrentHue}: func(st *light.State, v zcl.Value) {
		st.Hue = v.Uint8()
	},
	{zcl.ClusterColorControl, zcl.AttrCurrentSaturation}: func(st *light.State, v zcl.Value) {
		st.Saturation = v.Uint8()
	},
	{zcl.ClusterColorControl, zcl.AttrCurrentX}: func(st *light.State, v zcl.Value) {
		st.ColorX = v.Uint16()
	},
	{zcl.ClusterColorControl, zcl.AttrCurrentY}: func(st *light.State, v zcl.Value) {
		st.ColorY = v.Uint16()
	},
	{zcl.ClusterColorControl, zcl.AttrColorMode}: func(st *light.State, v zcl.Value) {
		st.ColorMode = v.Uint8()
	},
}

// Dispatcher applies remote attribute writes to a light.Store.
type Dispatcher struct {
	store  *light.Store
	logger zerolog.Logger
}

// New creates a Dispatcher writing to store.
func New(store *light.Store, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		logger: logger.With().Str("component", "dispatch").Logger(),
	}
}

// Handles reports whether (cluster, attribute) maps onto a light field.
func Handles(cluster, attribute uint16) bool {
	_, ok := table[key{cluster, attribute}]
	return ok
}

// OnAttributeWrite updates the matching light field and applies it. Writes to
// attributes the light does not track are logged and otherwise ignored.
func (d *Dispatcher) OnAttributeWrite(w zigbee.AttributeWrite) {
	set, ok := table[key{w.Cluster, w.Attribute}]
	if !ok {
		d.logger.Info().
			Str("cluster", zcl.ClusterName(w.Cluster)).
			Str("attribute", zcl.AttributeName(w.Cluster, w.Attribute)).
			Msgf("cluster 0x%04X attribute 0x%04X value updated", w.Cluster, w.Attribute)
		return
	}

	d.logger.Debug().
		Str("attribute", zcl.AttributeName(w.Cluster, w.Attribute)).
		Stringer("value", w.Value).
		Msg("attribute write")
	d.store.Update(func(st *light.State) {
		set(st, w.Value)
	})
}
