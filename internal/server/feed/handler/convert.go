package handler

import (
	"github.com/padmux/padmux/apitypes"
	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/pad"
)

func padStateJSON(st pad.State) apitypes.PadState {
	out := apitypes.PadState{
		Buttons: st.Buttons,
		DPad:    st.DPad,
		LX:      st.LX,
		LY:      st.LY,
		RX:      st.RX,
		RY:      st.RY,
		L2:      st.L2,
		R2:      st.R2,
		Battery: st.Battery.String(),
	}
	if st.Motion != nil {
		out.Motion = &apitypes.Motion{
			GyroX:  st.Motion.GyroX,
			GyroY:  st.Motion.GyroY,
			GyroZ:  st.Motion.GyroZ,
			AccelX: st.Motion.AccelX,
			AccelY: st.Motion.AccelY,
			AccelZ: st.Motion.AccelZ,
		}
	}
	for _, tp := range []pad.Touch{st.Touch1, st.Touch2} {
		if tp.Active {
			out.Touches = append(out.Touches, apitypes.Touch{ID: tp.ID, X: tp.X, Y: tp.Y})
		}
	}
	return out
}

func slotJSON(in hub.SlotInfo) apitypes.SlotInfo {
	out := apitypes.SlotInfo{Index: in.Index, Occupied: in.Occupied}
	if in.Occupied {
		out.Device = in.Device.String()
		out.State = in.State.String()
		out.Battery = in.Battery.String()
	}
	return out
}

func deviceJSON(in hub.DeviceInfo) apitypes.DeviceInfo {
	return apitypes.DeviceInfo{
		Model:     in.Device.Model.String(),
		Transport: in.Device.Transport.String(),
		Addr:      in.Device.Addr,
		State:     in.State.String(),
		Slot:      in.Slot,
		Pending:   in.Pending,
	}
}

func eventJSON(ev hub.Event) apitypes.Event {
	out := apitypes.Event{
		Kind:      ev.Kind.String(),
		Slot:      ev.Slot,
		Model:     ev.Device.Model.String(),
		Transport: ev.Device.Transport.String(),
		Addr:      ev.Device.Addr,
	}
	if ev.Kind == hub.EventBatteryLow {
		out.Battery = ev.Battery.String()
	}
	return out
}
