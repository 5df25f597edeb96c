// Package mqtt publishes netmap-core events to an MQTT broker.
//
// MQTT is optional for this service (mqtt.enabled). When enabled, other
// systems on the network can follow the inventory without polling the
// REST API:
//
//	netmap/system/status                  online/offline (retained, LWT)
//	netmap/device/{id}/status             last observed reachability (retained)
//	netmap/inventory/{entity}/{action}    device/connection/config file changes
//	netmap/discovery/result               completed subnet scans
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.DeviceStatus(id), status, true)
package mqtt
