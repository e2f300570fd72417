package mqtt

import "fmt"

// Topic prefixes for the meshconsole MQTT scheme.
//
// Device events arrive from the cloud gateway on application-scoped topics:
//
//	app/{application}               - application-wide event stream
//	app/{application}/{device}      - per-device event stream
//
// Commands back to devices go through the gateway's command topics:
//
//	command/{application}/{device}/{channel}
const (
	// TopicPrefixApp is the base for inbound device event topics.
	TopicPrefixApp = "app"

	// TopicPrefixCommand is the base for outbound device command topics.
	TopicPrefixCommand = "command"

	// TopicPrefixService is the base for console service topics.
	TopicPrefixService = "meshconsole"
)

// Topics provides builders for meshconsole MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.AppEvents("doppelgaenger")
//	// Returns: "app/doppelgaenger"
type Topics struct{}

// AppEvents returns the application-wide event topic.
//
// Example: app/doppelgaenger
func (Topics) AppEvents(application string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixApp, application)
}

// DeviceEvents returns the per-device event topic.
//
// Example: app/doppelgaenger/dev-1
func (Topics) DeviceEvents(application, device string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixApp, application, device)
}

// AllAppEvents returns a pattern matching the application topic and all
// per-device subtopics.
//
// Pattern: app/doppelgaenger/#
func (Topics) AllAppEvents(application string) string {
	return fmt.Sprintf("%s/%s/#", TopicPrefixApp, application)
}

// Command returns the command topic for a device channel.
//
// Example: command/doppelgaenger/dev-1/sensor
func (Topics) Command(application, device, channel string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixCommand, application, device, channel)
}

// SensorCommand returns the command topic for the sensor channel.
// Display and speaker updates both travel over this channel.
//
// Example: command/doppelgaenger/dev-1/sensor
func (Topics) SensorCommand(application, device string) string {
	return Topics{}.Command(application, device, "sensor")
}

// ServiceStatus returns the console's status topic.
// Used for the online/offline LWT messages.
//
// Example: meshconsole/status
func (Topics) ServiceStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixService)
}
