package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coldstage/adr-core/internal/control"
	"github.com/coldstage/adr-core/internal/eventlog"
	"github.com/coldstage/adr-core/internal/history"
	"github.com/coldstage/adr-core/internal/infrastructure/config"
	"github.com/coldstage/adr-core/internal/infrastructure/logging"
	"github.com/coldstage/adr-core/internal/infrastructure/mqtt"
	"github.com/coldstage/adr-core/internal/instrument"
	"github.com/coldstage/adr-core/internal/state"
)

type publishedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakeBroker records publishes and subscriptions without a broker.
type fakeBroker struct {
	mu       sync.Mutex
	pubs     []publishedMsg
	handlers map[string]mqtt.MessageHandler
	pubErr   error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubErr != nil {
		return b.pubErr
	}
	b.pubs = append(b.pubs, publishedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) lastOn(topic string) (publishedMsg, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.pubs) - 1; i >= 0; i-- {
		if b.pubs[i].topic == topic {
			return b.pubs[i], true
		}
	}
	return publishedMsg{}, false
}

func (b *fakeBroker) publishCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pubs)
}

type magCtlStub struct {
	mu       sync.Mutex
	startErr error
	starts   int
	cancels  int
}

func (m *magCtlStub) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.starts++
	return nil
}

func (m *magCtlStub) Cancel() {
	m.mu.Lock()
	m.cancels++
	m.mu.Unlock()
}

type regCtlStub struct {
	mu         sync.Mutex
	startErr   error
	starts     int
	cancels    int
	lastTarget float64
}

func (r *regCtlStub) Start(_ context.Context, target float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	r.lastTarget = target
	return nil
}

func (r *regCtlStub) Cancel() {
	r.mu.Lock()
	r.cancels++
	r.mu.Unlock()
}

type runsStub struct {
	runs      []history.Run
	err       error
	lastLimit int
}

func (r *runsStub) List(_ context.Context, limit int) ([]history.Run, error) {
	r.lastLimit = limit
	if r.err != nil {
		return nil, r.err
	}
	return r.runs, nil
}

func testSettings() config.SettingsConfig {
	return config.SettingsConfig{
		PIDKP:              2,
		PIDKI:              0,
		PIDKD:              70,
		MagUpDV:            0.003,
		MagnetVoltageLimit: 0.1,
		CurrentLimit:       9,
		VoltageLimit:       2,
		DVdTLimit:          0.008,
		DIdTMagUpLimit:     9.0 / (30 * 60),
		DIdTRegulateLimit:  9.0 / (40 * 60),
		StepLength:         1.0,
		GGGOutOfRange:      20.0,
		FAAOutOfRange:      45.0,
	}
}

type serverRig struct {
	broker   *fakeBroker
	store    *state.Store
	devices  *instrument.Registry
	settings *control.Settings
	elog     *eventlog.Log
	mag      *magCtlStub
	reg      *regCtlStub
	runs     *runsStub
	server   *Server

	nextID int
}

func newServerRig(t *testing.T) *serverRig {
	t.Helper()

	sim := instrument.NewSim()
	rig := &serverRig{
		broker: newFakeBroker(),
		store:  state.NewStore(),
		devices: instrument.NewRegistry(instrument.Set{
			PowerSupply: sim.PowerSupply(),
			Diode:       sim.Diode(),
			Ruox:        sim.Ruox(),
			MagnetV:     sim.MagnetV(),
		}),
		settings: control.NewSettings(testSettings()),
		mag:      &magCtlStub{},
		reg:      &regCtlStub{},
		runs:     &runsStub{},
	}

	elog, err := eventlog.New(t.TempDir(), time.Now(), logging.Default())
	if err != nil {
		t.Fatalf("eventlog.New() error = %v", err)
	}
	t.Cleanup(func() { elog.Close() }) //nolint:errcheck // Test cleanup
	rig.elog = elog

	server, err := New(Deps{
		Broker:     rig.broker,
		Store:      rig.store,
		Devices:    rig.devices,
		Settings:   rig.settings,
		Log:        rig.elog,
		MagUp:      rig.mag,
		Regulation: rig.reg,
		Runs:       rig.runs,
		Logger:     logging.Default(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rig.server = server
	return rig
}

// prime commits one poll sample so snapshot reads have data.
func (rig *serverRig) prime(mutate func(*state.SystemState)) {
	sample := rig.store.StartCycle()
	sample.Cycle++
	sample.Time = time.Now()
	mutate(&sample)
	rig.store.CommitCycle(sample)
}

// roundTrip publishes one request through the handler and decodes the
// response.
func (rig *serverRig) roundTrip(t *testing.T, command string, params map[string]any) ResponseMessage {
	t.Helper()

	rig.nextID++
	id := fmt.Sprintf("req-%03d", rig.nextID)
	body, err := json.Marshal(RequestMessage{
		RequestID: id,
		Timestamp: time.Now().UTC(),
		Params:    params,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	if err := rig.server.handleRequest("adr/request/"+command, body); err != nil {
		t.Fatalf("handleRequest(%s) error = %v", command, err)
	}

	msg, ok := rig.broker.lastOn("adr/response/" + id)
	if !ok {
		t.Fatalf("no response published for %s", command)
	}
	var resp ResponseMessage
	if err := json.Unmarshal(msg.payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.RequestID != id {
		t.Errorf("response RequestID = %q, want %q", resp.RequestID, id)
	}
	return resp
}

func wantSuccess(t *testing.T, resp ResponseMessage) map[string]any {
	t.Helper()
	if !resp.Success {
		t.Fatalf("Success = false, error = %+v", resp.Error)
	}
	return resp.Data
}

func wantError(t *testing.T, resp ResponseMessage, code string) *ResponseError {
	t.Helper()
	if resp.Success {
		t.Fatalf("Success = true, want failure with code %s", code)
	}
	if resp.Error == nil {
		t.Fatalf("Error = nil, want code %s", code)
	}
	if resp.Error.Code != code {
		t.Fatalf("Error.Code = %q, want %q (message %q)", resp.Error.Code, code, resp.Error.Message)
	}
	return resp.Error
}

func TestNewValidatesDeps(t *testing.T) {
	base := func(t *testing.T) Deps {
		t.Helper()
		elog, err := eventlog.New(t.TempDir(), time.Now(), logging.Default())
		if err != nil {
			t.Fatalf("eventlog.New() error = %v", err)
		}
		t.Cleanup(func() { elog.Close() }) //nolint:errcheck // Test cleanup
		sim := instrument.NewSim()
		return Deps{
			Broker: newFakeBroker(),
			Store:  state.NewStore(),
			Devices: instrument.NewRegistry(instrument.Set{
				PowerSupply: sim.PowerSupply(),
				Diode:       sim.Diode(),
				Ruox:        sim.Ruox(),
				MagnetV:     sim.MagnetV(),
			}),
			Settings:   control.NewSettings(testSettings()),
			Log:        elog,
			MagUp:      &magCtlStub{},
			Regulation: &regCtlStub{},
			Runs:       &runsStub{},
			Logger:     logging.Default(),
		}
	}

	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"nil broker", func(d *Deps) { d.Broker = nil }},
		{"nil store", func(d *Deps) { d.Store = nil }},
		{"nil registry", func(d *Deps) { d.Devices = nil }},
		{"nil settings", func(d *Deps) { d.Settings = nil }},
		{"nil log", func(d *Deps) { d.Log = nil }},
		{"nil mag-up controller", func(d *Deps) { d.MagUp = nil }},
		{"nil regulation controller", func(d *Deps) { d.Regulation = nil }},
		{"nil runs", func(d *Deps) { d.Runs = nil }},
		{"nil logger", func(d *Deps) { d.Logger = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := base(t)
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Error("New() error = nil, want validation failure")
			}
		})
	}

	if _, err := New(base(t)); err != nil {
		t.Errorf("New() with full deps error = %v", err)
	}
}

func TestStartSubscribesToRequests(t *testing.T) {
	rig := newServerRig(t)

	rig.broker.mu.Lock()
	_, ok := rig.broker.handlers["adr/request/+"]
	rig.broker.mu.Unlock()
	if !ok {
		t.Error("no subscription on adr/request/+")
	}
}

func TestHandleRequestRejectsMalformedInput(t *testing.T) {
	rig := newServerRig(t)

	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"short topic", "adr/request", `{"request_id":"req-1"}`},
		{"invalid json", "adr/request/cycle", `{not json`},
		{"missing request id", "adr/request/cycle", `{"params":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := rig.broker.publishCount()
			if err := rig.server.handleRequest(tt.topic, []byte(tt.payload)); err == nil {
				t.Error("handleRequest() error = nil, want parse failure")
			}
			if got := rig.broker.publishCount(); got != before {
				t.Errorf("published %d responses to a malformed request", got-before)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	rig := newServerRig(t)

	resp := rig.roundTrip(t, "defrost", nil)
	e := wantError(t, resp, ErrCodeInvalidCommand)
	if !strings.Contains(e.Message, "defrost") {
		t.Errorf("error message %q does not name the command", e.Message)
	}
}

func TestSnapshotReadCommands(t *testing.T) {
	rig := newServerRig(t)
	rig.prime(func(s *state.SystemState) {
		s.T60K, s.T3K = 48.1, 3.2
		s.TGGG, s.TFAA = math.NaN(), 0.095
		s.MagnetV = 0.02
		s.PSCurrent, s.PSVoltage = 1.5, 0.75
	})
	cur := rig.store.Current()

	t.Run("pscurrent", func(t *testing.T) {
		data := wantSuccess(t, rig.roundTrip(t, "pscurrent", nil))
		if data["value"] != 1.5 {
			t.Errorf("value = %v, want 1.5", data["value"])
		}
	})

	t.Run("psvoltage", func(t *testing.T) {
		data := wantSuccess(t, rig.roundTrip(t, "psvoltage", nil))
		if data["value"] != 0.75 {
			t.Errorf("value = %v, want 0.75", data["value"])
		}
	})

	t.Run("magnetv", func(t *testing.T) {
		data := wantSuccess(t, rig.roundTrip(t, "magnetv", nil))
		if data["value"] != 0.02 {
			t.Errorf("value = %v, want 0.02", data["value"])
		}
	})

	t.Run("cycle", func(t *testing.T) {
		data := wantSuccess(t, rig.roundTrip(t, "cycle", nil))
		if data["cycle"] != float64(1) {
			t.Errorf("cycle = %v, want 1", data["cycle"])
		}
	})

	t.Run("time", func(t *testing.T) {
		data := wantSuccess(t, rig.roundTrip(t, "time", nil))
		if data["time"] != cur.Time.Format(time.RFC3339) {
			t.Errorf("time = %v, want %v", data["time"], cur.Time.Format(time.RFC3339))
		}
	})

	t.Run("temperatures", func(t *testing.T) {
		data := wantSuccess(t, rig.roundTrip(t, "temperatures", nil))
		temps, ok := data["temperatures"].([]any)
		if !ok || len(temps) != 4 {
			t.Fatalf("temperatures = %v, want 4-element array", data["temperatures"])
		}
		if temps[0] != 48.1 || temps[1] != 3.2 {
			t.Errorf("outer stages = %v, %v, want 48.1, 3.2", temps[0], temps[1])
		}
		if temps[2] != nil {
			t.Errorf("TGGG = %v, want null for NaN", temps[2])
		}
		if temps[3] != 0.095 {
			t.Errorf("TFAA = %v, want 0.095", temps[3])
		}
	})
}

func TestGetStateVar(t *testing.T) {
	rig := newServerRig(t)
	rig.prime(func(s *state.SystemState) {
		s.PSCurrent = 1.5
		s.TGGG = math.NaN()
	})

	t.Run("known variable", func(t *testing.T) {
		data := wantSuccess(t, rig.roundTrip(t, "get-state-var", map[string]any{"name": "PSCurrent"}))
		if data["name"] != "PSCurrent" || data["value"] != 1.5 {
			t.Errorf("data = %v, want PSCurrent = 1.5", data)
		}
	})

	t.Run("nan reads as null", func(t *testing.T) {
		data := wantSuccess(t, rig.roundTrip(t, "get-state-var", map[string]any{"name": "T_GGG"}))
		if data["value"] != nil {
			t.Errorf("value = %v, want null for NaN", data["value"])
		}
	})

	t.Run("unknown variable", func(t *testing.T) {
		resp := rig.roundTrip(t, "get-state-var", map[string]any{"name": "flux_capacitor"})
		wantError(t, resp, ErrCodeInvalidParameters)
	})

	t.Run("missing name", func(t *testing.T) {
		resp := rig.roundTrip(t, "get-state-var", nil)
		wantError(t, resp, ErrCodeInvalidParameters)
	})
}

func TestGetLog(t *testing.T) {
	rig := newServerRig(t)
	rig.elog.Log("first")
	rig.elog.Log("second")
	rig.elog.Alert("third")

	t.Run("last n", func(t *testing.T) {
		data := wantSuccess(t, rig.roundTrip(t, "get-log", map[string]any{"n": 2}))
		entries, ok := data["entries"].([]any)
		if !ok || len(entries) != 2 {
			t.Fatalf("entries = %v, want 2", data["entries"])
		}
		first := entries[0].(map[string]any)
		last := entries[1].(map[string]any)
		if !strings.HasSuffix(first["message"].(string), "second") {
			t.Errorf("entries[0] = %v, want the second entry (oldest first)", first["message"])
		}
		if !strings.HasSuffix(last["message"].(string), "third") {
			t.Errorf("entries[1] = %v, want the third entry", last["message"])
		}
		if last["alert"] != true {
			t.Error("alert flag lost in transit")
		}
	})

	t.Run("zero returns all", func(t *testing.T) {
		data := wantSuccess(t, rig.roundTrip(t, "get-log", nil))
		if entries := data["entries"].([]any); len(entries) != 3 {
			t.Errorf("entries = %d, want all 3", len(entries))
		}
	})
}

func TestRegulateCommand(t *testing.T) {
	t.Run("default setpoint", func(t *testing.T) {
		rig := newServerRig(t)
		data := wantSuccess(t, rig.roundTrip(t, "regulate", nil))
		if data["target"] != 0.1 {
			t.Errorf("target = %v, want default 0.1", data["target"])
		}
		if rig.reg.starts != 1 || rig.reg.lastTarget != 0.1 {
			t.Errorf("controller got %d starts, target %v, want 1 start at 0.1",
				rig.reg.starts, rig.reg.lastTarget)
		}
	})

	t.Run("explicit setpoint", func(t *testing.T) {
		rig := newServerRig(t)
		wantSuccess(t, rig.roundTrip(t, "regulate", map[string]any{"temp": 0.085}))
		if rig.reg.lastTarget != 0.085 {
			t.Errorf("target = %v, want 0.085", rig.reg.lastTarget)
		}
	})

	t.Run("guard rejection", func(t *testing.T) {
		rig := newServerRig(t)
		rig.reg.startErr = control.ErrBusy
		resp := rig.roundTrip(t, "regulate", nil)
		e := wantError(t, resp, ErrCodeRejected)
		if e.Message != control.ErrBusy.Error() {
			t.Errorf("message = %q, want %q", e.Message, control.ErrBusy.Error())
		}
	})

	t.Run("bad parameter type", func(t *testing.T) {
		rig := newServerRig(t)
		resp := rig.roundTrip(t, "regulate", map[string]any{"temp": "cold"})
		wantError(t, resp, ErrCodeInvalidParameters)
		if rig.reg.starts != 0 {
			t.Error("controller started despite invalid parameters")
		}
	})
}

func TestMagUpCommand(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		rig := newServerRig(t)
		wantSuccess(t, rig.roundTrip(t, "mag-up", nil))
		if rig.mag.starts != 1 {
			t.Errorf("starts = %d, want 1", rig.mag.starts)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		rig := newServerRig(t)
		rig.mag.startErr = control.ErrDevicesNotReady
		resp := rig.roundTrip(t, "mag-up", nil)
		wantError(t, resp, ErrCodeRejected)
	})
}

func TestCancelCommands(t *testing.T) {
	rig := newServerRig(t)

	wantSuccess(t, rig.roundTrip(t, "cancel-mag-up", nil))
	wantSuccess(t, rig.roundTrip(t, "cancel-regulation", nil))

	if rig.mag.cancels != 1 {
		t.Errorf("mag-up cancels = %d, want 1", rig.mag.cancels)
	}
	if rig.reg.cancels != 1 {
		t.Errorf("regulation cancels = %d, want 1", rig.reg.cancels)
	}
}

func TestAddToLog(t *testing.T) {
	t.Run("message appended", func(t *testing.T) {
		rig := newServerRig(t)
		wantSuccess(t, rig.roundTrip(t, "add-to-log", map[string]any{"message": "magnet looks healthy"}))
		entries := rig.elog.LastN(0)
		if len(entries) != 1 || !strings.HasSuffix(entries[0].Message, "magnet looks healthy") {
			t.Errorf("log = %v, want the appended message", entries)
		}
	})

	t.Run("blank dropped", func(t *testing.T) {
		rig := newServerRig(t)
		wantSuccess(t, rig.roundTrip(t, "add-to-log", map[string]any{"message": ""}))
		if rig.elog.Len() != 0 {
			t.Error("blank message was logged")
		}
	})

	t.Run("missing message", func(t *testing.T) {
		rig := newServerRig(t)
		resp := rig.roundTrip(t, "add-to-log", nil)
		wantError(t, resp, ErrCodeInvalidParameters)
	})
}

func TestSetGainCommands(t *testing.T) {
	rig := newServerRig(t)

	tests := []struct {
		command string
		value   float64
		read    func(config.SettingsConfig) float64
	}{
		{"set-pid-kp", 3.5, func(c config.SettingsConfig) float64 { return c.PIDKP }},
		{"set-pid-ki", 0.25, func(c config.SettingsConfig) float64 { return c.PIDKI }},
		{"set-pid-kd", 55, func(c config.SettingsConfig) float64 { return c.PIDKD }},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			data := wantSuccess(t, rig.roundTrip(t, tt.command, map[string]any{"value": tt.value}))
			if data["value"] != tt.value {
				t.Errorf("response value = %v, want %v", data["value"], tt.value)
			}
			if got := tt.read(rig.settings.Get()); got != tt.value {
				t.Errorf("settings value = %v, want %v", got, tt.value)
			}
		})
	}

	t.Run("missing value", func(t *testing.T) {
		resp := rig.roundTrip(t, "set-pid-kp", nil)
		wantError(t, resp, ErrCodeInvalidParameters)
	})
}

func TestGetSettings(t *testing.T) {
	rig := newServerRig(t)

	data := wantSuccess(t, rig.roundTrip(t, "get-settings", nil))
	want := map[string]float64{
		"pid_kp":               2,
		"current_limit":        9,
		"voltage_limit":        2,
		"magup_dv":             0.003,
		"magnet_voltage_limit": 0.1,
		"step_length":          1.0,
		"faa_out_of_range":     45.0,
	}
	for key, v := range want {
		if data[key] != v {
			t.Errorf("%s = %v, want %v", key, data[key], v)
		}
	}
}

func TestSelectRuoxChannel(t *testing.T) {
	t.Run("valid switch", func(t *testing.T) {
		rig := newServerRig(t)
		data := wantSuccess(t, rig.roundTrip(t, "select-ruox-channel", map[string]any{"channel": "GGG"}))
		if data["channel"] != "GGG" {
			t.Errorf("channel = %v, want GGG", data["channel"])
		}
		if ch, _ := rig.store.RuoxChannel(); ch != state.ChannelGGG {
			t.Errorf("store channel = %v, want GGG", ch)
		}
		entries := rig.elog.LastN(1)
		if len(entries) != 1 || !strings.HasSuffix(entries[0].Message, "Ruox channel set to GGG.") {
			t.Errorf("log = %v, want channel switch entry", entries)
		}
	})

	t.Run("unknown channel", func(t *testing.T) {
		rig := newServerRig(t)
		resp := rig.roundTrip(t, "select-ruox-channel", map[string]any{"channel": "60K"})
		wantError(t, resp, ErrCodeInvalidParameters)
	})

	t.Run("instrument failure", func(t *testing.T) {
		rig := newServerRig(t)
		failing := &failingRuox{err: errors.New("bridge timeout")}
		rig.server.devices = instrument.NewRegistry(instrument.Set{Ruox: failing})

		resp := rig.roundTrip(t, "select-ruox-channel", map[string]any{"channel": "GGG"})
		wantError(t, resp, ErrCodeDeviceUnreachable)
		if rig.server.devices.Connected(instrument.RoleRuoxMonitor) {
			t.Error("Ruox monitor still marked connected after failed switch")
		}
		if ch, _ := rig.store.RuoxChannel(); ch != state.ChannelFAA {
			t.Errorf("store channel = %v, want FAA unchanged", ch)
		}
	})
}

// failingRuox fails every instrument call.
type failingRuox struct{ err error }

func (f *failingRuox) Connect(context.Context) error { return f.err }
func (f *failingRuox) TimeConstant(context.Context) (time.Duration, error) {
	return 0, f.err
}
func (f *failingRuox) Temperature(context.Context) (float64, error) { return 0, f.err }
func (f *failingRuox) SelectChannel(context.Context, state.Channel) error {
	return f.err
}

func TestGetRuns(t *testing.T) {
	t.Run("listing", func(t *testing.T) {
		rig := newServerRig(t)
		rig.runs.runs = []history.Run{
			{ID: "run-a1b2c3d4", Kind: history.KindMagUp, Target: 9, StartedAt: time.Now().UTC()},
		}

		data := wantSuccess(t, rig.roundTrip(t, "get-runs", map[string]any{"n": 5}))
		runs, ok := data["runs"].([]any)
		if !ok || len(runs) != 1 {
			t.Fatalf("runs = %v, want 1", data["runs"])
		}
		run := runs[0].(map[string]any)
		if run["id"] != "run-a1b2c3d4" || run["kind"] != "magup" {
			t.Errorf("run = %v, want id run-a1b2c3d4 kind magup", run)
		}
		if rig.runs.lastLimit != 5 {
			t.Errorf("limit = %d, want 5", rig.runs.lastLimit)
		}
	})

	t.Run("repository failure", func(t *testing.T) {
		rig := newServerRig(t)
		rig.runs.err = errors.New("disk gone")
		resp := rig.roundTrip(t, "get-runs", nil)
		wantError(t, resp, ErrCodeInternal)
	})
}

func TestRefreshInstruments(t *testing.T) {
	rig := newServerRig(t)

	data := wantSuccess(t, rig.roundTrip(t, "refresh-instruments", nil))
	conns, ok := data["connections"].(map[string]any)
	if !ok {
		t.Fatalf("connections = %v, want role map", data["connections"])
	}
	for _, role := range []string{
		"Power Supply",
		"Diode Temperature Monitor",
		"Ruox Temperature Monitor",
		"Magnet Voltage Monitor",
	} {
		if conns[role] != true {
			t.Errorf("connections[%s] = %v, want true with the sim backend", role, conns[role])
		}
	}
}
