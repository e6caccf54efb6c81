package cluster

import (
	"fmt"
	"log"
	"os"

	consul "github.com/hashicorp/consul/api"
)

// RegisterService anuncia este nó no Consul com um health check HTTP no
// endpoint /health do próprio listener de jogo. O agente desregistra
// sozinho um nó que ficar crítico por mais de um minuto.
func RegisterService(consulAddr, serviceName string, servicePort int) error {
	config := consul.DefaultConfig()
	config.Address = consulAddr

	client, err := consul.NewClient(config)
	if err != nil {
		return fmt.Errorf("cluster: create consul client: %w", err)
	}

	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	serviceID := fmt.Sprintf("%s-%s", serviceName, hostname)

	registration := &consul.AgentServiceRegistration{
		ID:   serviceID,
		Name: serviceName,
		Port: servicePort,
		Check: &consul.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", hostname, servicePort),
			Timeout:                        "5s",
			Interval:                       "10s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("cluster: register service: %w", err)
	}

	log.Printf("[cluster] service %q registered in consul with id %s", serviceName, serviceID)
	return nil
}
