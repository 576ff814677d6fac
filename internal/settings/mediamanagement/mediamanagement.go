// Package mediamanagement manages file naming, import and permission
// configuration, spread over two remote config singletons, plus the root
// folder list.
package mediamanagement

import (
	"context"
	"fmt"
	"sort"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/reconcile"
	"github.com/declarr/declarr/internal/remotemap"
	"github.com/declarr/declarr/internal/settings/codec"
)

const (
	namingPath     = "/api/v3/config/naming"
	managementPath = "/api/v3/config/mediamanagement"
	rootFolderPath = "/api/v3/rootfolder"
)

// Settings holds the media management configuration: movie naming, folder
// and import handling, file permissions and root folders.
type Settings struct {
	// Movie naming.
	RenameMovies             bool   `yaml:"rename_movies"`
	ReplaceIllegalCharacters bool   `yaml:"replace_illegal_characters"`
	ColonReplacement         string `yaml:"colon_replacement"`
	StandardMovieFormat      string `yaml:"standard_movie_format"`
	MovieFolderFormat        string `yaml:"movie_folder_format"`

	// Folders.
	CreateEmptyMovieFolders bool `yaml:"create_empty_movie_folders"`
	DeleteEmptyFolders      bool `yaml:"delete_empty_folders"`

	// Importing.
	SkipFreeSpaceCheck bool `yaml:"skip_free_space_check"`
	MinimumFreeSpace   int  `yaml:"minimum_free_space"`
	UseHardlinks       bool `yaml:"use_hardlinks"`
	ImportExtraFiles   bool `yaml:"import_extra_files"`

	// File management.
	UnmonitorDeletedMovies   bool    `yaml:"unmonitor_deleted_movies"`
	PropersAndRepacks        string  `yaml:"propers_and_repacks"`
	AnalyzeVideoFiles        bool    `yaml:"analyze_video_files"`
	RescanFolderAfterRefresh string  `yaml:"rescan_folder_after_refresh"`
	ChangeFileDate           string  `yaml:"change_file_date"`
	RecyclingBin             *string `yaml:"recycling_bin"`
	RecyclingBinCleanup      int     `yaml:"recycling_bin_cleanup"`

	// Permissions.
	SetPermissions bool    `yaml:"set_permissions"`
	ChmodFolder    string  `yaml:"chmod_folder"`
	ChownGroup     *string `yaml:"chown_group"`

	RootFolders RootFolders `yaml:"root_folders"`
}

// RootFolders holds the managed root folder paths. Root folders have no
// mutable attributes, so reconciling them is create and delete only, keyed
// by path.
type RootFolders struct {
	DeleteUnmanaged bool     `yaml:"delete_unmanaged"`
	Definitions     []string `yaml:"definitions"`
}

// Defaults returns the settings Radarr ships with.
func Defaults() Settings {
	return Settings{
		ReplaceIllegalCharacters: true,
		ColonReplacement:         "delete",
		StandardMovieFormat:      "{Movie Title} ({Release Year}) {Quality Full}",
		MovieFolderFormat:        "{Movie Title} ({Release Year})",
		MinimumFreeSpace:         100,
		UseHardlinks:             true,
		PropersAndRepacks:        "do-not-prefer",
		AnalyzeVideoFiles:        true,
		RescanFolderAfterRefresh: "always",
		ChangeFileDate:           "none",
		RecyclingBinCleanup:      7,
		ChmodFolder:              "755",
	}
}

// Validate checks value ranges the remote would otherwise reject.
func (s *Settings) Validate() error {
	if s.MinimumFreeSpace < 100 {
		return fmt.Errorf("minimum_free_space must be at least 100 MB, got %d", s.MinimumFreeSpace)
	}
	if s.RecyclingBinCleanup < 0 {
		return fmt.Errorf("recycling_bin_cleanup must not be negative, got %d", s.RecyclingBinCleanup)
	}
	return nil
}

func (s *Settings) namingEntries() []remotemap.Entry {
	return []remotemap.Entry{
		codec.Bool("rename_movies", "renameMovies", false, &s.RenameMovies),
		codec.Bool("replace_illegal_characters", "replaceIllegalCharacters", false, &s.ReplaceIllegalCharacters),
		codec.Enum("colon_replacement", "colonReplacementFormat", false, &s.ColonReplacement, map[string]any{
			"delete":           "delete",
			"dash":             "dash",
			"space-dash":       "spaceDash",
			"space-dash-space": "spaceDashSpace",
		}),
		codec.Text("standard_movie_format", "standardMovieFormat", false, &s.StandardMovieFormat),
		codec.Text("movie_folder_format", "movieFolderFormat", false, &s.MovieFolderFormat),
	}
}

func (s *Settings) managementEntries() []remotemap.Entry {
	return []remotemap.Entry{
		codec.Bool("create_empty_movie_folders", "createEmptyMovieFolders", false, &s.CreateEmptyMovieFolders),
		codec.Bool("delete_empty_folders", "deleteEmptyFolders", false, &s.DeleteEmptyFolders),
		codec.Bool("skip_free_space_check", "skipFreeSpaceCheckWhenImporting", false, &s.SkipFreeSpaceCheck),
		codec.Int("minimum_free_space", "minimumFreeSpaceWhenImporting", false, &s.MinimumFreeSpace),
		codec.Bool("use_hardlinks", "copyUsingHardlinks", false, &s.UseHardlinks),
		codec.Bool("import_extra_files", "importExtraFiles", false, &s.ImportExtraFiles),
		codec.Bool("unmonitor_deleted_movies", "autoUnmonitorPreviouslyDownloadedMovies", false, &s.UnmonitorDeletedMovies),
		codec.Enum("propers_and_repacks", "downloadPropersAndRepacks", false, &s.PropersAndRepacks, map[string]any{
			"prefer-and-upgrade":           "preferAndUpgrade",
			"do-not-upgrade-automatically": "doNotUpgrade",
			"do-not-prefer":                "doNotPrefer",
		}),
		codec.Bool("analyze_video_files", "enableMediaInfo", false, &s.AnalyzeVideoFiles),
		codec.Enum("rescan_folder_after_refresh", "rescanAfterRefresh", false, &s.RescanFolderAfterRefresh, map[string]any{
			"always":               "always",
			"after-manual-refresh": "afterManual",
			"never":                "never",
		}),
		// "releease" is the value the remote actually stores.
		codec.Enum("change_file_date", "fileDate", false, &s.ChangeFileDate, map[string]any{
			"none":                  "none",
			"in-cinemas-date":       "cinemas",
			"physical-release-date": "releease",
		}),
		codec.OptionalText("recycling_bin", "recycleBin", false, &s.RecyclingBin),
		codec.Int("recycling_bin_cleanup", "recycleBinCleanupDays", false, &s.RecyclingBinCleanup),
		codec.Bool("set_permissions", "setPermissionsLinux", false, &s.SetPermissions),
		codec.Enum("chmod_folder", "chmodFolder", false, &s.ChmodFolder, map[string]any{
			"755": "755",
			"775": "775",
			"770": "770",
			"750": "750",
			"777": "777",
		}),
		codec.OptionalText("chown_group", "chownGroup", false, &s.ChownGroup),
	}
}

// FromRemote replaces the settings with the remote's current configuration.
func (s *Settings) FromRemote(ctx context.Context, env reconcile.Env) error {
	if err := reconcile.DecodeSingleton(ctx, env, "naming config", namingPath, s.namingEntries()); err != nil {
		return err
	}
	if err := reconcile.DecodeSingleton(ctx, env, "media management config", managementPath, s.managementEntries()); err != nil {
		return err
	}
	paths, err := s.rootFolderIDs(ctx, env)
	if err != nil {
		return err
	}
	s.RootFolders.Definitions = make([]string, 0, len(paths))
	for path := range paths {
		s.RootFolders.Definitions = append(s.RootFolders.Definitions, path)
	}
	sort.Strings(s.RootFolders.Definitions)
	return nil
}

// UpdateRemote pushes both config singletons when drifted and creates
// missing root folders.
func (s *Settings) UpdateRemote(ctx context.Context, env reconcile.Env, checkUnmanaged bool) (bool, error) {
	namingChanged, err := reconcile.SyncSingleton(ctx, env, "naming config", namingPath, s.namingEntries())
	if err != nil {
		return false, err
	}
	managementChanged, err := reconcile.SyncSingleton(ctx, env, "media management config", managementPath, s.managementEntries())
	if err != nil {
		return namingChanged, err
	}
	foldersChanged, err := s.updateRootFolders(ctx, env, checkUnmanaged)
	if err != nil {
		return namingChanged || managementChanged, err
	}
	return namingChanged || managementChanged || foldersChanged, nil
}

func (s *Settings) updateRootFolders(ctx context.Context, env reconcile.Env, checkUnmanaged bool) (bool, error) {
	existing, err := s.rootFolderIDs(ctx, env)
	if err != nil {
		return false, err
	}

	managed := map[string]bool{}
	changed := false
	paths := append([]string(nil), s.RootFolders.Definitions...)
	sort.Strings(paths)
	for _, path := range paths {
		managed[path] = true
		if _, ok := existing[path]; ok {
			env.Report.Unchanged("root folder", path)
			continue
		}
		if err := env.Client.PostJSON(ctx, rootFolderPath, map[string]any{"path": path}, nil); err != nil {
			return changed, fmt.Errorf("create root folder %q: %w", path, err)
		}
		env.Report.Created("root folder", path)
		changed = true
	}

	if checkUnmanaged {
		for _, path := range sortedKeys(existing) {
			if !managed[path] {
				env.Report.Unmanaged("root folder", path)
			}
		}
	}
	return changed, nil
}

// DeleteRemote removes unmanaged root folders when enabled. Both config
// singletons always exist, so there is nothing else to delete.
func (s *Settings) DeleteRemote(ctx context.Context, env reconcile.Env) (bool, error) {
	if !s.RootFolders.DeleteUnmanaged {
		return false, nil
	}
	existing, err := s.rootFolderIDs(ctx, env)
	if err != nil {
		return false, err
	}
	managed := map[string]bool{}
	for _, path := range s.RootFolders.Definitions {
		managed[path] = true
	}

	changed := false
	for _, path := range sortedKeys(existing) {
		if managed[path] {
			continue
		}
		if err := env.Client.DeleteJSON(ctx, fmt.Sprintf("%s/%d", rootFolderPath, existing[path])); err != nil {
			return changed, fmt.Errorf("delete root folder %q: %w", path, err)
		}
		env.Report.Deleted("root folder", path)
		changed = true
	}
	return changed, nil
}

// rootFolderIDs maps remote root folder paths to their resource ids.
func (s *Settings) rootFolderIDs(ctx context.Context, env reconcile.Env) (map[string]int, error) {
	var resources []api.Resource
	if err := env.Client.GetJSON(ctx, rootFolderPath, &resources); err != nil {
		return nil, fmt.Errorf("list root folders: %w", err)
	}
	ids := make(map[string]int, len(resources))
	for _, res := range resources {
		path, err := remotemap.AsString(res["path"])
		if err != nil {
			return nil, fmt.Errorf("root folder: %w", err)
		}
		ids[path] = res.ID()
	}
	return ids, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
