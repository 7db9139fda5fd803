package main

import (
	"badgeregistry/config"
	"badgeregistry/contract"
	"badgeregistry/metrics"
	"badgeregistry/opsserver"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("badgeregistry.main")

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Error loading configuration: " + err.Error())
	}
	flogging.ActivateSpec(cfg.LogSpec)

	m := metrics.New()
	cc, err := contractapi.NewChaincode(contract.New(m))
	if err != nil {
		panic("Error creating BadgeRegistryContract: " + err.Error())
	}

	if cfg.MetricsAddress != "" {
		ops := opsserver.New(opsserver.Config{ListenAddr: cfg.MetricsAddress, Gatherer: m.Registry})
		ops.RunInBackground()
		ops.MarkReady(true)
		defer func() {
			if err := ops.Shutdown(); err != nil {
				logger.Warningf("Operations server shutdown: %v", err)
			}
		}()
	}

	if !cfg.ServerMode() {
		if err := cc.Start(); err != nil {
			panic("Error starting chaincode: " + err.Error())
		}
		return
	}

	tls, err := cfg.LoadTLSMaterial()
	if err != nil {
		panic("Error loading chaincode TLS material: " + err.Error())
	}
	server := &shim.ChaincodeServer{
		CCID:    cfg.ChaincodeID,
		Address: cfg.ServerAddress,
		CC:      cc,
		TLSProps: shim.TLSProperties{
			Disabled:      cfg.TLSDisabled,
			Key:           tls.Key,
			Cert:          tls.Cert,
			ClientCACerts: tls.ClientCACert,
		},
	}
	logger.Infof("Starting chaincode server %s on %s", cfg.ChaincodeID, cfg.ServerAddress)
	if err := server.Start(); err != nil {
		panic("Error starting chaincode server: " + err.Error())
	}
}
