// Package recognizers registers file-type recognizers for package archive
// and container formats that are tagged by path/extension alone, with no
// content parsing: JAR/WAR/EAR, Android/iOS/browser extension bundles,
// and common disk-image/installer archives.
//
// Grounded on original_source/src/parsers/misc.rs's file_recognizer! macro
// family: each recognizer returns a PackageData with only PackageType and
// DatasourceID set, exactly like that macro's expansion.
package recognizers

import (
	"context"

	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

type recognizer struct {
	id, pkgType, datasourceID string
	patterns                  []string
}

var recognizedTypes = []recognizer{
	{"java_jar", "jar", "java_jar", []string{"**/*.jar"}},
	{"java_war_archive", "war", "java_war_archive", []string{"**/*.war"}},
	{"java_war_web_xml", "war", "java_war_web_xml", []string{"**/WEB-INF/web.xml"}},
	{"java_ear_archive", "ear", "java_ear_archive", []string{"**/*.ear"}},
	{"java_ear_application_xml", "ear", "java_ear_application_xml", []string{"**/META-INF/application.xml"}},
	{"axis2_mar", "axis2", "axis2_mar", []string{"**/*.mar"}},
	{"jboss_sar", "jboss-service", "jboss_sar", []string{"**/*.sar"}},
	{"meteor_package", "meteor", "meteor_package", []string{"**/package.js"}},
	{"android_apk", "android", "android_apk", []string{"**/*.apk"}},
	{"android_aar_library", "android_lib", "android_aar_library", []string{"**/*.aar"}},
	{"mozilla_xpi", "mozilla", "mozilla_xpi", []string{"**/*.xpi"}},
	{"chrome_crx", "chrome", "chrome_crx", []string{"**/*.crx"}},
	{"ios_ipa", "ios", "ios_ipa", []string{"**/*.ipa"}},
	{"microsoft_cabinet", "cab", "microsoft_cabinet", []string{"**/*.cab"}},
	{"shar_shell_archive", "shar", "shar_shell_archive", []string{"**/*.shar"}},
	{"apple_dmg", "dmg", "apple_dmg", []string{"**/*.dmg", "**/*.sparseimage"}},
	{"iso_disk_image", "iso", "iso_disk_image", []string{"**/*.iso", "**/*.udf", "**/*.img"}},
	{"squashfs_disk_image", "squashfs", "squashfs_disk_image", []string{"**/*.squashfs"}},
}

func init() {
	for _, r := range recognizedTypes {
		r := r
		registry.Register(registry.Descriptor{
			ID:           r.id,
			Description:  "file-type recognizer, no content parsing: " + r.pkgType,
			Patterns:     r.patterns,
			DatasourceID: r.datasourceID,
			Mode:         registry.Standalone,
			Parse: func(_ context.Context, _ string) ([]*model.PackageData, error) {
				return []*model.PackageData{{
					PackageType:  r.pkgType,
					DatasourceID: r.datasourceID,
				}}, nil
			},
		})
	}
}
