package rpc

import (
	"fmt"
	"strings"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const structType = ".google.protobuf.Struct"

var describeMu sync.Mutex

// FileName is the descriptor path a service is registered under, e.g.
// "ffmclub/ProfileService.proto" for ffmclub.ProfileService.
func FileName(service string) string {
	return strings.ReplaceAll(service, ".", "/") + ".proto"
}

// describe registers a file descriptor for s in protoregistry.GlobalFiles,
// so server reflection can list and describe its methods. Every method
// takes and returns google.protobuf.Struct. Registering the same service
// twice is a no-op.
func describe(s Service) (string, error) {
	path := FileName(s.Name)

	describeMu.Lock()
	defer describeMu.Unlock()
	if _, err := protoregistry.GlobalFiles.FindFileByPath(path); err == nil {
		return path, nil
	}

	pkg, name := "", s.Name
	if i := strings.LastIndexByte(s.Name, '.'); i >= 0 {
		pkg, name = s.Name[:i], s.Name[i+1:]
	}

	svc := &descriptorpb.ServiceDescriptorProto{Name: proto.String(name)}
	for _, m := range s.Methods {
		svc.Method = append(svc.Method, methodProto(m.MethodName, false, false))
	}
	for _, st := range s.Streams {
		svc.Method = append(svc.Method, methodProto(st.StreamName, st.ClientStreams, st.ServerStreams))
	}

	file := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(path),
		Package:    proto.String(pkg),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/struct.proto"},
		Service:    []*descriptorpb.ServiceDescriptorProto{svc},
	}
	fd, err := protodesc.NewFile(file, protoregistry.GlobalFiles)
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", s.Name, err)
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		return "", fmt.Errorf("register %s: %w", path, err)
	}
	return path, nil
}

func methodProto(name string, clientStreams, serverStreams bool) *descriptorpb.MethodDescriptorProto {
	m := &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(structType),
		OutputType: proto.String(structType),
	}
	if clientStreams {
		m.ClientStreaming = proto.Bool(true)
	}
	if serverStreams {
		m.ServerStreaming = proto.Bool(true)
	}
	return m
}
