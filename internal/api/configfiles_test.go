package api

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/nerrad567/netmap-core/internal/configfile"
	"github.com/nerrad567/netmap-core/internal/device"
)

func TestConfigFiles_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDevice(t, "switch", "10.0.0.2")

	rec := env.upload(t, http.MethodPost, "/api/v1/configuration-files", "file", "../../switch-running",
		[]byte("vlan 10"), map[string]string{"related_device": d.ID, "description": "  running config "})
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var f configfile.ConfigurationFile
	decode(t, rec, &f)
	if f.FileName != "switch-running" || f.Description != "running config" || f.Size != 7 {
		t.Errorf("uploaded = %+v", f)
	}

	var list struct {
		Files []configfile.ConfigurationFile `json:"files"`
		Count int                            `json:"count"`
	}
	rec = env.do(t, http.MethodGet, "/api/v1/configuration-files?device_id="+d.ID, nil)
	decode(t, rec, &list)
	if list.Count != 1 || list.Files[0].ID != f.ID {
		t.Errorf("list = %+v", list)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/configuration-files/"+f.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/configuration-files/"+f.ID+"/download", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if rec.Body.String() != "vlan 10" {
		t.Errorf("content = %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "switch-running") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/configuration-files/"+f.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/configuration-files/"+f.ID+"/download", nil)
	expectError(t, rec, http.StatusNotFound, ErrCodeNotFound)
}

func TestConfigFiles_UploadValidation(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDevice(t, "switch", "")

	tests := []struct {
		name    string
		field   string
		content []byte
		fields  map[string]string
		status  int
		code    string
	}{
		{"no file", "", nil, map[string]string{"related_device": d.ID}, http.StatusBadRequest, ErrCodeValidation},
		{"no device", "file", []byte("x"), nil, http.StatusBadRequest, ErrCodeValidation},
		{"unknown device", "file", []byte("x"), map[string]string{"related_device": "ghost"}, http.StatusBadRequest, ErrCodeValidation},
		{"too large", "file", bytes.Repeat([]byte("x"), 2048), map[string]string{"related_device": d.ID}, http.StatusBadRequest, ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.upload(t, http.MethodPost, "/api/v1/configuration-files", tt.field, "cfg", tt.content, tt.fields)
			expectError(t, rec, tt.status, tt.code)
		})
	}

	rec := env.do(t, http.MethodPost, "/api/v1/configuration-files", map[string]any{"related_device": d.ID})
	expectError(t, rec, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestPhoto_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDevice(t, "camera", "10.0.0.9")

	rec := env.upload(t, http.MethodPut, "/api/v1/devices/"+d.ID+"/photo", "photo", "front.png", []byte("first"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got device.Device
	decode(t, rec, &got)
	firstKey := "photos/" + d.ID + "/front.png"
	if got.Photo != firstKey {
		t.Errorf("Photo = %q, want %q", got.Photo, firstKey)
	}

	rec = env.upload(t, http.MethodPut, "/api/v1/devices/"+d.ID+"/photo", "photo", "side.png", []byte("second"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace status = %d", rec.Code)
	}
	if env.blobs.Exists(firstKey) {
		t.Error("replaced photo content was not removed")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/devices/"+d.ID+"/photo", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "second" {
		t.Errorf("get photo = %d %q", rec.Code, rec.Body.String())
	}

	// A PATCH cannot repoint the photo.
	rec = env.do(t, http.MethodPatch, "/api/v1/devices/"+d.ID, map[string]any{"photo": "photos/other/x.png"})
	decode(t, rec, &got)
	if got.Photo != "photos/"+d.ID+"/side.png" {
		t.Errorf("Photo after patch = %q", got.Photo)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/devices/"+d.ID+"/photo", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/devices/"+d.ID+"/photo", nil)
	expectError(t, rec, http.StatusNotFound, ErrCodeNotFound)

	rec = env.upload(t, http.MethodPut, "/api/v1/devices/"+d.ID+"/photo", "photo", "huge.png", bytes.Repeat([]byte("x"), 2048), nil)
	expectError(t, rec, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge)

	rec = env.upload(t, http.MethodPut, "/api/v1/devices/"+d.ID+"/photo", "", "", nil, nil)
	expectError(t, rec, http.StatusBadRequest, ErrCodeValidation)
}
