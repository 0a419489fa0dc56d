package envmanager

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pybun/internal/cache"
	"pybun/internal/index"
	"pybun/internal/schema"
)

// InstallError reports a failure unpacking a distribution's cached blob
// into an environment's site-packages (spec.md §7's `install` kind,
// E_INSTALL_IO).
type InstallError struct {
	SHA256 string
	Err    error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("envmanager: installing distribution %s: %v", e.SHA256, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

func (e *InstallError) Diagnostic() schema.Diagnostic {
	return schema.Diagnostic{
		Kind:    schema.KindInstall,
		Code:    schema.CodeInstallIO,
		Message: e.Error(),
		Hint:    "re-run install to re-fetch the distribution, or check permissions on the cache's envs/ subtree",
	}
}

// installDistributions unpacks every prebuilt distribution's cached blob
// into sitePackages. This is the Go shape of
// original_source/src/installer.rs's install_wheel: a wheel is already a
// zip archive, so materializing an environment is "unzip into
// site-packages" with no venv creation step at all — install_wheel's own
// trailing comment makes the same call ("Just stick to... install_wheel
// for deps" rather than a full `python -m venv`, which it measured at
// "~15ms (warm) to ~100s ms").
//
// A "source" kind distribution has no unpack step here: building from
// source was out of scope for install_wheel too, which only ever handled
// "pure-python wheels or platform-compatible binary wheels for the
// current system" — see DESIGN.md.
func installDistributions(root cache.Root, sitePackages string, dists []index.Distribution) error {
	if err := os.MkdirAll(sitePackages, 0o755); err != nil {
		return fmt.Errorf("envmanager: creating site-packages: %w", err)
	}
	for _, dist := range dists {
		if dist.Kind != "prebuilt" || dist.SHA256 == "" {
			continue
		}
		data, ok, err := root.Get(dist.SHA256)
		if err != nil {
			return &InstallError{SHA256: dist.SHA256, Err: err}
		}
		if !ok {
			return &InstallError{SHA256: dist.SHA256, Err: fmt.Errorf("cached blob not present")}
		}
		if err := installWheel(data, sitePackages); err != nil {
			return &InstallError{SHA256: dist.SHA256, Err: err}
		}
	}
	return nil
}

// installWheel unzips a wheel's bytes into sitePackages, entry by entry:
// directories via MkdirAll, files copied byte for byte with their parent
// directories created on demand, and each entry's permission bits
// preserved from the zip header the same way install_wheel preserves
// unix_mode() — archive/zip's FileHeader.Mode() decodes the same info in a
// platform-neutral way.
func installWheel(data []byte, sitePackages string) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("not a valid wheel archive: %w", err)
	}
	for _, f := range r.File {
		if err := installWheelEntry(f, sitePackages); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return nil
}

func installWheelEntry(f *zip.File, sitePackages string) error {
	name := filepath.Clean(f.Name)
	if name == "." || filepath.IsAbs(name) || strings.HasPrefix(name, ".."+string(filepath.Separator)) || name == ".." {
		// Mirrors enclosed_name()'s rejection of an entry that would land
		// outside the extraction root.
		return nil
	}
	outPath := filepath.Join(sitePackages, name)

	if f.FileInfo().IsDir() {
		return os.MkdirAll(outPath, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return err
	}
	return nil
}
