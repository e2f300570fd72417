// Package command builds and publishes outbound device commands.
//
// Commands address a device by its mesh unicast address and carry the
// desired absolute state of one or more model elements. They travel to
// the cloud gateway over MQTT on the device's sensor command channel.
package command
