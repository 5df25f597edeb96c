// Package device provides the Device Registry for netmap-core.
//
// The registry is the catalogue of every tracked network endpoint:
// computers, servers, routers, switches, printers, mobiles, IoT gear.
// Each device has a hostname, optional IP and MAC addresses, a type, free
// text notes, an optional photo and its last observed reachability.
//
// # Components
//
//   - Registry (registry.go): CRUD with an in-memory cache, safe for
//     concurrent use. The status monitor writes reachability through it.
//   - Repository (repository.go): SQLite persistence.
//   - Validation (validation.go): hostname, address and type checks.
//   - StatusHistoryRepository (status_history.go): every observed
//     online/offline transition.
//
// Deleting a device removes its connections and configuration file rows
// in the same statement through ON DELETE CASCADE.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	d := &device.Device{Hostname: "nas", IPAddress: device.StringPtr("10.0.0.5")}
//	if err := registry.CreateDevice(ctx, d); err != nil {
//	    return err // errors.Is(err, device.ErrInvalidDevice) for bad input
//	}
package device
