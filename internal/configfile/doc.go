// Package configfile stores configuration files attached to devices.
//
// Metadata lives in the configuration_files table. Content lives in the
// blob store under configs/<device id>/<file id>/<file name>, so every
// blob of a device can be removed with one prefix delete once the rows
// have cascaded away.
package configfile
