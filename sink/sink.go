package sink

import (
	"fmt"
	"os"

	"go.jacobcolvin.com/eventsim/config"
	"go.jacobcolvin.com/eventsim/sim"
)

// FromConfig builds the enabled sinks from output configuration. With no
// outputs configured at all, events go to stdout as JSON lines.
//
// On error, any sinks already constructed are closed before returning.
func FromConfig(outputs []config.OutputConfig) ([]sim.Sink, error) {
	if len(outputs) == 0 {
		return []sim.Sink{NewStdout(os.Stdout, "json")}, nil
	}

	var sinks []sim.Sink

	for _, out := range outputs {
		if !out.IsEnabled() {
			continue
		}

		s, err := fromOutput(out)
		if err != nil {
			closeAll(sinks)

			return nil, err
		}

		sinks = append(sinks, s)
	}

	return sinks, nil
}

func fromOutput(out config.OutputConfig) (sim.Sink, error) {
	switch out.Type {
	case "stdout":
		return NewStdout(os.Stdout, out.Format), nil
	case "file":
		return NewFile(out.FilePath, out.Format, out.FileRotation)
	case "kafka":
		return NewKafka(KafkaOptions{
			Brokers:      out.KafkaBrokers,
			DefaultTopic: out.DefaultTopic,
			TopicMapping: out.TopicMapping,
			SASLUsername: out.SASLUsername,
			SASLPassword: out.SASLPassword,
		}), nil
	}

	return nil, fmt.Errorf("%w: output type %q", config.ErrInvalidConfig, out.Type)
}

func closeAll(sinks []sim.Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}
