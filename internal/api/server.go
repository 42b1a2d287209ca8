package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coldstage/adr-core/internal/control"
	"github.com/coldstage/adr-core/internal/eventlog"
	"github.com/coldstage/adr-core/internal/history"
	"github.com/coldstage/adr-core/internal/infrastructure/logging"
	"github.com/coldstage/adr-core/internal/infrastructure/mqtt"
	"github.com/coldstage/adr-core/internal/instrument"
	"github.com/coldstage/adr-core/internal/state"
)

// Server operation constants.
const (
	// requestQoS is the QoS level for the request subscription and for
	// responses. Commands matter; at-least-once is worth the overhead.
	requestQoS = 1

	// requestTimeout bounds database reads and single instrument calls
	// made while serving a request.
	requestTimeout = 5 * time.Second

	// refreshTimeout bounds instrument re-initialization, which talks to
	// every configured instrument in turn.
	refreshTimeout = 30 * time.Second

	// minRequestTopicParts is the segment count of adr/request/{command}.
	minRequestTopicParts = 3
)

// Broker is the MQTT surface the server uses. *mqtt.Client satisfies it.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// MagController starts and cancels the mag-up ramp.
// Satisfied by *control.MagUpController.
type MagController interface {
	Start(ctx context.Context) error
	Cancel()
}

// RegController starts, retargets, and cancels regulation.
// Satisfied by *control.RegulationController.
type RegController interface {
	Start(ctx context.Context, targetTemp float64) error
	Cancel()
}

// RunLister reads back recorded mag-up and regulation runs.
// Satisfied by history.Repository implementations.
type RunLister interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
}

// Deps holds the dependencies required by the command server.
type Deps struct {
	Broker     Broker
	Store      *state.Store
	Devices    *instrument.Registry
	Settings   *control.Settings
	Log        *eventlog.Log
	MagUp      MagController
	Regulation RegController
	Runs       RunLister
	Logger     *logging.Logger
}

// Server answers command requests arriving over MQTT.
//
// One handler goroutine per message (the MQTT client's delivery model);
// every dependency the handlers touch is safe for concurrent use.
type Server struct {
	broker     Broker
	store      *state.Store
	devices    *instrument.Registry
	settings   *control.Settings
	elog       *eventlog.Log
	magup      MagController
	regulation RegController
	runs       RunLister
	logger     *logging.Logger

	// ctx is the process context captured at Start. Controller loops
	// started by a command outlive the request and stop with it.
	ctx context.Context
}

// New creates the command server. Call Start to begin serving.
func New(deps Deps) (*Server, error) {
	if deps.Broker == nil {
		return nil, fmt.Errorf("broker is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("instrument registry is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if deps.Log == nil {
		return nil, fmt.Errorf("operator log is required")
	}
	if deps.MagUp == nil || deps.Regulation == nil {
		return nil, fmt.Errorf("controllers are required")
	}
	if deps.Runs == nil {
		return nil, fmt.Errorf("run history is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Server{
		broker:     deps.Broker,
		store:      deps.Store,
		devices:    deps.Devices,
		settings:   deps.Settings,
		elog:       deps.Log,
		magup:      deps.MagUp,
		regulation: deps.Regulation,
		runs:       deps.Runs,
		logger:     deps.Logger,
		ctx:        context.Background(),
	}, nil
}

// Start subscribes to the request topics. Controller loops launched by
// commands are bound to ctx and stop when it is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx

	topic := mqtt.Topics{}.AllRequests()
	if err := s.broker.Subscribe(topic, requestQoS, s.handleRequest); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}

	s.logger.Info("command surface started", "topic", topic)
	return nil
}

// handleRequest parses one request, dispatches it, and publishes the
// response. Returned errors are logged by the MQTT client.
func (s *Server) handleRequest(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < minRequestTopicParts {
		return fmt.Errorf("malformed request topic: %s", topic)
	}
	command := parts[2]

	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("parse request on %s: %w", topic, err)
	}
	if req.RequestID == "" {
		return fmt.Errorf("request on %s has no request_id", topic)
	}

	s.logger.Debug("request received",
		"request_id", req.RequestID,
		"command", command)

	resp := s.dispatch(command, req)

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response for %s: %w", req.RequestID, err)
	}
	if err := s.broker.Publish(mqtt.Topics{}.Response(req.RequestID), body, requestQoS, false); err != nil {
		return fmt.Errorf("publish response for %s: %w", req.RequestID, err)
	}
	return nil
}

// dispatch routes one command to its handler.
func (s *Server) dispatch(command string, req RequestMessage) ResponseMessage {
	switch command {
	case "get-log":
		return s.handleGetLog(req)
	case "get-state-var":
		return s.handleGetStateVar(req)
	case "pscurrent":
		return okResponse(req.RequestID, map[string]any{"value": jsonFloat(s.store.Current().PSCurrent)})
	case "psvoltage":
		return okResponse(req.RequestID, map[string]any{"value": jsonFloat(s.store.Current().PSVoltage)})
	case "magnetv":
		return okResponse(req.RequestID, map[string]any{"value": jsonFloat(s.store.Current().MagnetV)})
	case "cycle":
		return okResponse(req.RequestID, map[string]any{"cycle": s.store.Current().Cycle})
	case "time":
		return okResponse(req.RequestID, map[string]any{"time": s.store.Current().Time.Format(time.RFC3339)})
	case "temperatures":
		return s.handleTemperatures(req)
	case "regulate":
		return s.handleRegulate(req)
	case "mag-up":
		return s.handleMagUp(req)
	case "cancel-regulation":
		s.regulation.Cancel()
		return okResponse(req.RequestID, nil)
	case "cancel-mag-up":
		s.magup.Cancel()
		return okResponse(req.RequestID, nil)
	case "refresh-instruments":
		return s.handleRefreshInstruments(req)
	case "add-to-log":
		return s.handleAddToLog(req)
	case "set-pid-kp":
		return s.handleSetGain(req, s.settings.SetPIDKP)
	case "set-pid-ki":
		return s.handleSetGain(req, s.settings.SetPIDKI)
	case "set-pid-kd":
		return s.handleSetGain(req, s.settings.SetPIDKD)
	case "get-settings":
		return s.handleGetSettings(req)
	case "select-ruox-channel":
		return s.handleSelectRuoxChannel(req)
	case "get-runs":
		return s.handleGetRuns(req)
	default:
		return errResponse(req.RequestID, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown command: %s", command))
	}
}
