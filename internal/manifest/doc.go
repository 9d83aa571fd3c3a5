// Package manifest composes deployment manifests from ordered layers.
//
// Layers are merged lowest precedence first:
//
//	templates/deployment.yml            base deployment
//	(run metadata, in memory)           meta.environment, meta.stemcell, ...
//	templates/jobs.yml                  job placement
//	templates/infrastructure-<i>.yml    infrastructure overlay
//	-f overlay.yml ...                  ad-hoc overlays, in order
//
// Mappings merge key by key; everything else, sequences included, is
// replaced by the higher layer. After merging, reference markers are
// replaced with the values they point at, and any placeholder still left
// fails composition with a *CompositionError naming every offending path.
package manifest
