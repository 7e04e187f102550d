// Configuration for the IQC dashboard is loaded in three layers:
//
//  1. Defaults from NewConfig
//  2. An optional YAML file passed to Load
//  3. IQC_* environment variables, with dots replaced by underscores
//     (IQC_SERVER_ADDR overrides server.addr)
//
// Example YAML:
//
//	data:
//	  work_dir: ${HOME}/.iqc/uploads
//	  paths:
//	    - /data/iqc/*.parquet
//	engine:
//	  batch_size: 8192
//	viewer:
//	  script_url: /opt/iqc/3Dmol-min.js
//	server:
//	  addr: ":8501"
//
// ${VAR_NAME} references inside data.work_dir and data.paths are expanded
// after loading.
package config
