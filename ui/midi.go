package ui

import (
	"context"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
)

// ListenMIDI feeds note on/off messages from the named input port to ctrl
// until stop is called.
func ListenMIDI(ctx context.Context, port string, ctrl *Controller) (stop func(), err error) {
	logger := log.FromContext(ctx).WithPrefix("midi")
	in, err := midi.FindInPort(port)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("find MIDI input "+port))
	}
	logger.Info("connecting to", "input", in.String())

	stop, err = midi.ListenTo(in, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		var sendErr error
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			sendErr = ctrl.NoteOn(midi.Note(key))
		case msg.GetNoteEnd(&ch, &key):
			sendErr = ctrl.NoteOff(midi.Note(key))
		default:
			return
		}
		if sendErr != nil {
			logger.Error(sendErr)
		}
	})
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("listen on "+port))
	}
	return stop, nil
}

// InPorts names the available MIDI inputs.
func InPorts() []string {
	var names []string
	for _, p := range midi.GetInPorts() {
		names = append(names, p.String())
	}
	return names
}
